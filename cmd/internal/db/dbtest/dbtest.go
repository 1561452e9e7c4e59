//go:build integration

// Package dbtest starts a disposable Postgres for integration tests and
// applies the embedded migrations to it.
package dbtest

import (
	"context"
	"fmt"
	"time"

	"brandhub/cmd/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres is a running, migrated test database.
type Postgres struct {
	DSN       string
	container tc.Container
}

// StartPostgres launches postgres:15-alpine and migrates it up.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "brandhub_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	pg := &Postgres{
		DSN:       fmt.Sprintf("postgres://postgres:password@%s:%s/brandhub_test?sslmode=disable", host, port.Port()),
		container: container,
	}
	if err := db.Migrate(pg.DSN, "up"); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pg, nil
}

// Pool opens a pgx pool against the container.
func (p *Postgres) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, p.DSN)
}

// Terminate stops the container.
func (p *Postgres) Terminate(ctx context.Context) error {
	return p.container.Terminate(ctx)
}
