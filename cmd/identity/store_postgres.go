package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brandhub/cmd/identity/ids"
	"brandhub/cmd/internal/credential"
	"brandhub/cmd/internal/principal"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the customers and users tables.
//
// The pgx pool is owned by the caller; this store must not close it.
// Table names come from a fixed kind switch, never from input.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

type principalTable struct {
	name string
	// extra selects (role, is_verified) uniformly across kinds.
	extra string
}

func tableFor(kind principal.Kind) (principalTable, bool) {
	switch kind {
	case principal.KindCustomer:
		return principalTable{name: "customers", extra: "''::text AS role, is_verified"}, true
	case principal.KindUser:
		return principalTable{name: "users", extra: "role, false AS is_verified"}, true
	default:
		return principalTable{}, false
	}
}

func (t principalTable) selectSQL(where string) string {
	return `SELECT id, ref_id, auth_id, name, email, country_code, phone, ` + t.extra + `, is_active, created_at
		FROM ` + t.name + `
		WHERE ` + where
}

// Register creates the authentication record and the principal in one transaction.
func (s *PostgresStore) Register(ctx context.Context, in RegisterInput) (Account, error) {
	const op = "identity.Register"

	in, err := in.validate(op)
	if err != nil {
		return Account{}, err
	}
	tbl, _ := tableFor(in.Kind)

	authID, err := ids.NewULID(in.Now)
	if err != nil {
		return Account{}, err
	}
	rowID, err := ids.NewULID(in.Now)
	if err != nil {
		return Account{}, err
	}
	ref, err := ids.NewRef()
	if err != nil {
		return Account{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := credential.CreateTx(ctx, tx, credential.Record{
		ID:        authID,
		Verifier:  in.Verifier,
		CreatedAt: in.Now,
	}); err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	acc := Account{
		ID:          rowID,
		Principal:   principal.Principal{Kind: in.Kind, Ref: ref},
		AuthID:      authID,
		Name:        in.Name,
		Email:       nilIfEmpty(in.Identifier.Email),
		CountryCode: nilIfEmpty(in.Identifier.CountryCode),
		Phone:       nilIfEmpty(in.Identifier.Phone),
		Role:        in.Role,
		IsActive:    true,
		CreatedAt:   in.Now,
	}

	switch in.Kind {
	case principal.KindCustomer:
		_, err = tx.Exec(ctx, `
			INSERT INTO customers (id, ref_id, auth_id, name, email, country_code, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		`, acc.ID, ref, authID, acc.Name, acc.Email, acc.CountryCode, acc.Phone, in.Now)
	case principal.KindUser:
		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, ref_id, auth_id, name, email, country_code, phone, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		`, acc.ID, ref, authID, acc.Name, acc.Email, acc.CountryCode, acc.Phone, acc.Role, in.Now)
	}
	if err != nil {
		if field, ok := classifyUniqueViolation(err, tbl.name); ok {
			return Account{}, conflict(op, field)
		}
		return Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// FindForLogin resolves an active, linked principal by email or phone.
func (s *PostgresStore) FindForLogin(ctx context.Context, kind principal.Kind, id Identifier) (Account, error) {
	const op = "identity.FindForLogin"

	tbl, ok := tableFor(kind)
	if !ok {
		return Account{}, invalid(op, "unknown principal kind")
	}
	id, ok = id.Normalize()
	if !ok {
		return Account{}, invalid(op, "incomplete identifier")
	}

	var row pgx.Row
	if id.Email != "" {
		row = s.pool.QueryRow(ctx, tbl.selectSQL(`email = $1 AND is_active`), id.Email)
	} else {
		row = s.pool.QueryRow(ctx, tbl.selectSQL(`country_code = $1 AND phone = $2 AND is_active`), id.CountryCode, id.Phone)
	}

	acc, err := scanAccount(row, kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, notFound(op)
	}
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	if acc.AuthID == "" {
		return Account{}, notFound(op)
	}
	return acc, nil
}

// GetByRef loads a principal by kind and public reference.
func (s *PostgresStore) GetByRef(ctx context.Context, p principal.Principal) (Account, error) {
	const op = "identity.GetByRef"

	tbl, ok := tableFor(p.Kind)
	if !ok {
		return Account{}, invalid(op, "unknown principal kind")
	}

	acc, err := scanAccount(s.pool.QueryRow(ctx, tbl.selectSQL(`ref_id = $1`), p.Ref), p.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, notFound(op)
	}
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// SetActive flips is_active on the principal row. Rotation joins on it, so
// a disabled principal's refresh token stops working immediately.
func (s *PostgresStore) SetActive(ctx context.Context, p principal.Principal, active bool) error {
	const op = "identity.SetActive"

	tbl, ok := tableFor(p.Kind)
	if !ok {
		return invalid(op, "unknown principal kind")
	}

	tag, err := s.pool.Exec(ctx, `UPDATE `+tbl.name+` SET is_active = $2, updated_at = now() WHERE ref_id = $1`, p.Ref, active)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

func scanAccount(row pgx.Row, kind principal.Kind) (Account, error) {
	var (
		acc    Account
		authID *string
	)
	acc.Principal.Kind = kind

	err := row.Scan(
		&acc.ID,
		&acc.Principal.Ref,
		&authID,
		&acc.Name,
		&acc.Email,
		&acc.CountryCode,
		&acc.Phone,
		&acc.Role,
		&acc.IsVerified,
		&acc.IsActive,
		&acc.CreatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	if authID != nil {
		acc.AuthID = *authID
	}
	return acc, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// classifyUniqueViolation maps a unique violation to a logical field.
func classifyUniqueViolation(err error, table string) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_" + table + "_email":
		return "email", true
	case "uq_" + table + "_phone":
		return "phone", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "phone"):
			return "phone", true
		case strings.Contains(c, "ref_id"):
			return "ref_id", true
		default:
			return "unique", true
		}
	}
}
