package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/database"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/query"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/schema"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// SQLExecutor runs a SQL statement and reports the outcome in-band. The
// error return is reserved for connection-acquisition failures.
type SQLExecutor interface {
	Execute(ctx context.Context, sqlText string) (query.Result, error)
}

// SchemaDescriber reads the database catalog.
type SchemaDescriber interface {
	Describe(ctx context.Context) (schema.Descriptor, error)
	SchemaText(ctx context.Context) string
}

// NaturalLanguageRelay assembles SQL-generation context for the client.
type NaturalLanguageRelay interface {
	Query(ctx context.Context, userQuery string) query.Result
}

type Config struct {
	Logger *slog.Logger

	Executor SQLExecutor
	Reporter SchemaDescriber
	Relay    NaturalLanguageRelay

	// Provider backs the readiness probe; optional.
	Provider database.Provider

	Version           string
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	AllowedTokens     []string // Bearer tokens allowed for MCP endpoint authentication
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Executor == nil {
		return fmt.Errorf("executor is required")
	}
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Relay == nil {
		return fmt.Errorf("relay is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}
