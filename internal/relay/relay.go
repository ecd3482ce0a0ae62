// Package relay assembles the context an external LLM client needs to
// translate a natural-language request into SQL. No SQL generation happens
// here: the result carries the schema, the user's request, and instructions
// to call the query tool with whatever SQL the client produces.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/query"
)

const relayMessage = "Please use the LLM client to generate SQL from the provided context and schema information, then call execute_sql_query with the generated SQL."

const nextStep = "Call execute_sql_query with the generated SQL"

const promptTemplate = `
Database Schema Information:
%s

User Query: %s

Please generate a PostgreSQL SQL query based on the user's natural language request and the database schema above.
The query should be safe, efficient, and return the requested data.

Requirements:
1. Use only the tables and columns available in the schema
2. Use PostgreSQL syntax
3. Include appropriate WHERE clauses for security
4. Add LIMIT clauses for large result sets if appropriate
5. Use proper JOINs when querying multiple tables
6. Return only the SQL query, no explanations

Generated SQL Query:
`

// SchemaTexter supplies the rendered schema. It never fails; on catalog
// errors it yields a fixed failure message instead.
type SchemaTexter interface {
	SchemaText(ctx context.Context) string
}

type Relay struct {
	log    *slog.Logger
	schema SchemaTexter
	clock  clockwork.Clock
}

type Config struct {
	Logger *slog.Logger
	Schema SchemaTexter
	Clock  clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Schema == nil {
		return fmt.Errorf("schema texter is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

func New(cfg Config) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate relay config: %w", err)
	}
	return &Relay{
		log:    cfg.Logger,
		schema: cfg.Schema,
		clock:  cfg.Clock,
	}, nil
}

// BuildPrompt renders the instructional prompt handed back to the client.
func BuildPrompt(schemaText, userQuery string) string {
	return fmt.Sprintf(promptTemplate, schemaText, userQuery)
}

// Query fetches the current schema and returns a result whose sql_query
// field holds the assembled prompt and whose single record instructs the
// client to generate SQL and re-invoke the query tool.
func (r *Relay) Query(ctx context.Context, userQuery string) query.Result {
	start := r.clock.Now()
	r.log.Debug("relay: assembling context", "query", userQuery)

	schemaText := r.schema.SchemaText(ctx)

	return query.Result{
		SQLQuery: BuildPrompt(schemaText, userQuery),
		Results: []query.Row{{
			"message":     relayMessage,
			"schema_info": schemaText,
			"user_query":  userQuery,
			"next_step":   nextStep,
		}},
		RowCount:      1,
		ExecutionTime: r.clock.Since(start).Seconds(),
	}
}
