// Package schema introspects the database catalog and renders it for an
// SQL-generating client, both as a structured mapping and as stable,
// human-readable text. The catalog is re-read on every call; there is no
// cache.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/database"
)

// DefaultSchemaName is the namespace introspected when none is configured.
const DefaultSchemaName = "public"

// FailureText is returned by SchemaText when the catalog cannot be read.
const FailureText = "Unable to retrieve database schema information."

// catalogQuery joins tables to columns for one namespace. The ordering is
// what makes repeated text renderings byte-identical.
const catalogQuery = `
	SELECT
		t.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable,
		c.column_default,
		c.character_maximum_length
	FROM information_schema.tables t
	JOIN information_schema.columns c ON t.table_name = c.table_name
		AND t.table_schema = c.table_schema
	WHERE t.table_schema = $1
	ORDER BY t.table_name, c.ordinal_position
`

// Column describes one column of one table.
type Column struct {
	Name      string  `json:"column"`
	Type      string  `json:"type"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default"`
	MaxLength *int    `json:"max_length"`
}

// Descriptor is the full schema of one namespace. Tables holds columns in
// declared order; TableOrder preserves the first-seen (alphabetical) order
// for deterministic text rendering.
type Descriptor struct {
	Tables map[string][]Column

	TableOrder []string `json:"-"`
}

// TableCount returns the number of tables in the descriptor.
func (d Descriptor) TableCount() int {
	return len(d.Tables)
}

// Text renders the descriptor as one header line per table and one indented
// line per column. Output is deterministic for a given catalog state.
func (d Descriptor) Text() string {
	var b strings.Builder
	b.WriteString("Database Schema:\n")
	for _, table := range d.TableOrder {
		fmt.Fprintf(&b, "\nTable: %s\n", table)
		for _, col := range d.Tables[table] {
			nullable := "NO"
			if col.Nullable {
				nullable = "YES"
			}
			fmt.Fprintf(&b, "  - %s (%s, nullable: %s)\n", col.Name, col.Type, nullable)
		}
	}
	return b.String()
}

// Reporter reads the catalog over short-lived connections.
type Reporter struct {
	log        *slog.Logger
	provider   database.Provider
	schemaName string
}

type ReporterConfig struct {
	Logger   *slog.Logger
	Provider database.Provider

	// SchemaName is the catalog namespace to introspect, default "public".
	SchemaName string
}

func (cfg *ReporterConfig) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Provider == nil {
		return fmt.Errorf("provider is required")
	}
	if cfg.SchemaName == "" {
		cfg.SchemaName = DefaultSchemaName
	}
	return nil
}

func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate reporter config: %w", err)
	}
	return &Reporter{
		log:        cfg.Logger,
		provider:   cfg.Provider,
		schemaName: cfg.SchemaName,
	}, nil
}

// Describe queries the catalog and groups the flat rows into per-table
// column lists. A database with no tables yields an empty, non-nil mapping.
func (r *Reporter) Describe(ctx context.Context) (Descriptor, error) {
	conn, err := r.provider.Acquire(ctx)
	if err != nil {
		return Descriptor{}, err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			r.log.Error("schema: failed to close connection", "error", err)
		}
	}()

	rows, err := conn.Query(ctx, catalogQuery, r.schemaName)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to query schema: %w", err)
	}
	defer rows.Close()

	desc := Descriptor{Tables: make(map[string][]Column)}
	for rows.Next() {
		var (
			tableName  string
			columnName string
			dataType   string
			isNullable string
			colDefault *string
			maxLength  *int
		)
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &colDefault, &maxLength); err != nil {
			return Descriptor{}, fmt.Errorf("failed to scan schema row: %w", err)
		}
		if _, seen := desc.Tables[tableName]; !seen {
			desc.TableOrder = append(desc.TableOrder, tableName)
		}
		desc.Tables[tableName] = append(desc.Tables[tableName], Column{
			Name:      columnName,
			Type:      dataType,
			Nullable:  isNullable == "YES",
			Default:   colDefault,
			MaxLength: maxLength,
		})
	}
	if err := rows.Err(); err != nil {
		return Descriptor{}, fmt.Errorf("error iterating schema rows: %w", err)
	}

	return desc, nil
}

// SchemaText returns the rendered schema, or a fixed failure message when
// the catalog cannot be read. It never returns an error.
func (r *Reporter) SchemaText(ctx context.Context) string {
	desc, err := r.Describe(ctx)
	if err != nil {
		r.log.Error("schema: failed to get schema info", "error", err)
		return FailureText
	}
	return desc.Text()
}
