// Package database provides short-lived Postgres connections. There is no
// pool: every Acquire dials, authenticates, and hands back a connection the
// caller must close. Concurrent callers are safe because nothing is shared.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/config"
)

// Conn is the subset of *pgx.Conn the rest of the service uses.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Provider opens connections from immutable connection parameters.
type Provider interface {
	Acquire(ctx context.Context) (Conn, error)
}

type PgxProvider struct {
	log *slog.Logger
	db  config.Database
}

func NewPgxProvider(log *slog.Logger, db config.Database) *PgxProvider {
	return &PgxProvider{log: log, db: db}
}

// Acquire dials a fresh connection. Failures (unreachable host, bad
// credentials) are logged and returned to the caller; there is no retry.
func (p *PgxProvider) Acquire(ctx context.Context) (Conn, error) {
	conn, err := pgx.Connect(ctx, p.db.DSN())
	if err != nil {
		p.log.Error("database: failed to connect", "target", p.db.Redacted(), "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}
