package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brandhub/cmd/internal/principal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the authentication table.
//
// The pool is owned by the caller and is never closed here. Rotate runs in
// one READ COMMITTED transaction: the matching row is locked with
// SELECT ... FOR UPDATE and the write is a compare-and-swap on the old hash,
// so a racing caller blocked on the lock re-evaluates its WHERE clause after
// the winner commits and finds nothing.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("credential: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const recordColumns = `a.id, a.password, a.otp, a.refresh_token_hash, a.refresh_token_expires_at,
	a.refresh_token_revoked, a.created_at, a.updated_at`

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	return CreateTx(ctx, s.pool, rec)
}

// CreateTx inserts rec using db, which may be a transaction owned by the
// caller (principal registration composes this with its own insert).
func CreateTx(ctx context.Context, db Execer, rec Record) error {
	const op = "credential.Create"
	if strings.TrimSpace(rec.ID) == "" || rec.Verifier == "" {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	now := rec.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := db.Exec(ctx, `
		INSERT INTO authentication (
			id, password, otp,
			refresh_token_hash, refresh_token_expires_at, refresh_token_revoked,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, rec.ID, rec.Verifier, rec.OTP, rec.RefreshTokenHash, rec.RefreshTokenExpiresAt, rec.RefreshTokenRevoked, now)
	if err != nil {
		if isUniqueViolation(err) {
			return OpError{Op: op, Kind: ErrConflict, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Record, error) {
	const op = "credential.GetByID"

	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM authentication a
		WHERE a.id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, notFound(op)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (s *PostgresStore) FindActiveByRefreshHash(ctx context.Context, hash string, now time.Time) (Record, error) {
	const op = "credential.FindActiveByRefreshHash"

	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM authentication a
		WHERE a.refresh_token_hash = $1
		  AND a.refresh_token_revoked = false
		  AND a.refresh_token_expires_at > $2
	`, hash, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, notFound(op)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (s *PostgresStore) SetRefresh(ctx context.Context, id string, st RefreshState, now time.Time) error {
	const op = "credential.SetRefresh"

	tag, err := s.pool.Exec(ctx, `
		UPDATE authentication
		SET refresh_token_hash = $2,
		    refresh_token_expires_at = $3,
		    refresh_token_revoked = false,
		    updated_at = $4
		WHERE id = $1
	`, id, st.Hash, st.ExpiresAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return OpError{Op: op, Kind: ErrConflict, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

func (s *PostgresStore) RevokeByRefreshHash(ctx context.Context, hash string, now time.Time) error {
	const op = "credential.RevokeByRefreshHash"

	tag, err := s.pool.Exec(ctx, `
		UPDATE authentication
		SET refresh_token_revoked = true,
		    refresh_token_hash = NULL,
		    refresh_token_expires_at = NULL,
		    updated_at = $2
		WHERE refresh_token_hash = $1
	`, hash, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

func (s *PostgresStore) Rotate(ctx context.Context, kind principal.Kind, hash string, now time.Time, issue IssueFunc) error {
	const op = "credential.Rotate"

	table, ok := principalTable(kind)
	if !ok {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ref uuid.UUID
	rec, err := scanRecord(tx.QueryRow(ctx, `
		SELECT `+recordColumns+`, p.ref_id
		FROM authentication a
		JOIN `+table+` p ON p.auth_id = a.id AND p.is_active
		WHERE a.refresh_token_hash = $1
		  AND a.refresh_token_revoked = false
		  AND a.refresh_token_expires_at > $2
		FOR UPDATE OF a
	`, hash, now), &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(op)
	}
	if err != nil {
		return fmt.Errorf("%s: lock: %w", op, err)
	}

	st, err := issue(rec, principal.Principal{Kind: kind, Ref: ref})
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE authentication
		SET refresh_token_hash = $2,
		    refresh_token_expires_at = $3,
		    refresh_token_revoked = false,
		    updated_at = $4
		WHERE id = $1
		  AND refresh_token_hash = $5
	`, rec.ID, st.Hash, st.ExpiresAt, now, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return OpError{Op: op, Kind: ErrConflict, Err: err}
		}
		return fmt.Errorf("%s: update: %w", op, err)
	}
	if tag.RowsAffected() != 1 {
		return notFound(op)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func principalTable(kind principal.Kind) (string, bool) {
	switch kind {
	case principal.KindCustomer:
		return "customers", true
	case principal.KindUser:
		return "users", true
	default:
		return "", false
	}
}

func scanRecord(row pgx.Row, extra ...any) (Record, error) {
	var rec Record
	dest := append([]any{
		&rec.ID,
		&rec.Verifier,
		&rec.OTP,
		&rec.RefreshTokenHash,
		&rec.RefreshTokenExpiresAt,
		&rec.RefreshTokenRevoked,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
