// Package identity stores the principals of brandhub: customers and users.
//
// Each principal row owns a link to its authentication record (auth_id).
// Registration creates both rows in one transaction.
package identity
