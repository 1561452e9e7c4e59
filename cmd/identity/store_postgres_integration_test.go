//go:build integration

package identity_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"brandhub/cmd/identity"
	"brandhub/cmd/internal/credential"
	"brandhub/cmd/internal/db/dbtest"
	"brandhub/cmd/internal/principal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pg *dbtest.Postgres

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	pg, err = dbtest.StartPostgres(ctx)
	if err != nil {
		panic(err)
	}
	code := m.Run()
	_ = pg.Terminate(ctx)
	os.Exit(code)
}

func mustStores(t *testing.T) (*pgxpool.Pool, *identity.PostgresStore, *credential.PostgresStore) {
	t.Helper()
	pool, err := pg.Pool(context.Background())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ids, err := identity.NewPostgresStore(pool)
	require.NoError(t, err)
	creds, err := credential.NewPostgresStore(pool)
	require.NoError(t, err)
	return pool, ids, creds
}

func TestPostgresStore_RegisterCreatesLinkedRecord(t *testing.T) {
	_, ids, creds := mustStores(t)
	ctx := context.Background()

	email := uuid.NewString() + "@Example.com"
	acc, err := ids.Register(ctx, identity.RegisterInput{
		Kind:       principal.KindCustomer,
		Name:       "Ada",
		Identifier: identity.Identifier{Email: email},
		Verifier:   "$argon2id$stub",
		Now:        time.Now().UTC(),
	})
	require.NoError(t, err)

	rec, err := creds.GetByID(ctx, acc.AuthID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$stub", rec.Verifier)
	assert.False(t, rec.RefreshTokenRevoked)

	found, err := ids.FindForLogin(ctx, principal.KindCustomer, identity.Identifier{Email: email})
	require.NoError(t, err)
	assert.Equal(t, acc.Principal, found.Principal)
	assert.Equal(t, acc.AuthID, found.AuthID)

	byRef, err := ids.GetByRef(ctx, acc.Principal)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byRef.Name)
}

func TestPostgresStore_RegisterConflictRollsBack(t *testing.T) {
	pool, ids, _ := mustStores(t)
	ctx := context.Background()

	email := uuid.NewString() + "@example.com"
	in := identity.RegisterInput{
		Kind:       principal.KindUser,
		Name:       "Op",
		Identifier: identity.Identifier{Email: email},
		Verifier:   "$argon2id$stub",
	}
	_, err := ids.Register(ctx, in)
	require.NoError(t, err)

	var before int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM authentication`).Scan(&before))

	_, err = ids.Register(ctx, in)
	require.True(t, identity.IsConflict(err), "got %v", err)

	var after int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM authentication`).Scan(&after))
	assert.Equal(t, before, after, "authentication insert must roll back with the principal")
}

func TestPostgresStore_FindForLoginByPhoneAndInactive(t *testing.T) {
	pool, ids, creds := mustStores(t)
	ctx := context.Background()
	now := time.Now().UTC()

	phone := "55" + strconv.FormatUint(uint64(uuid.New().ID()), 10)
	acc, err := ids.Register(ctx, identity.RegisterInput{
		Kind:       principal.KindCustomer,
		Name:       "Cy",
		Identifier: identity.Identifier{Email: phone + "@example.com", CountryCode: "+1", Phone: phone},
		Verifier:   "$argon2id$stub",
	})
	require.NoError(t, err)

	var storedPhone *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT phone FROM customers WHERE ref_id = $1`, acc.Principal.Ref).Scan(&storedPhone))
	require.NotNil(t, storedPhone, "phone is stored alongside the email")

	found, err := ids.FindForLogin(ctx, principal.KindCustomer, identity.Identifier{CountryCode: "1", Phone: phone})
	require.NoError(t, err)
	assert.Equal(t, acc.Principal, found.Principal)

	hash := uuid.NewString()
	require.NoError(t, creds.SetRefresh(ctx, acc.AuthID, credential.RefreshState{Hash: hash, ExpiresAt: now.Add(time.Hour)}, now))

	require.NoError(t, ids.SetActive(ctx, acc.Principal, false))

	_, err = ids.FindForLogin(ctx, principal.KindCustomer, identity.Identifier{CountryCode: "+1", Phone: phone})
	require.True(t, identity.IsNotFound(err))

	err = creds.Rotate(ctx, principal.KindCustomer, hash, now, func(credential.Record, principal.Principal) (credential.RefreshState, error) {
		return credential.RefreshState{Hash: uuid.NewString(), ExpiresAt: now.Add(time.Hour)}, nil
	})
	require.ErrorIs(t, err, credential.ErrNotFound, "disabled principals stop rotating")

	err = ids.SetActive(ctx, principal.Principal{Kind: principal.KindUser, Ref: uuid.New()}, false)
	require.True(t, identity.IsNotFound(err))
}
