// Package ids mints row ids and public references for principals.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewULID returns a 26-char ULID timestamped at now (time.Now when zero).
// Row ids sort by creation time.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewRef returns a random public reference. Refs are exposed in tokens and
// responses and carry no timing information.
func NewRef() (uuid.UUID, error) {
	return uuid.NewRandom()
}
