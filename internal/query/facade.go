// Package query executes caller-supplied SQL against the database and
// normalizes the outcome into a single result shape, whether the statement
// returned rows, affected rows, or failed.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/database"
)

// Row maps column names to values. Value types are whatever the driver
// decodes; they are not known until runtime.
type Row map[string]any

// Result is the uniform outcome of one statement. Data-level failures are
// reported in Error with empty results and a zero count; the elapsed time is
// measured up to the failure point.
type Result struct {
	SQLQuery      string  `json:"sql_query"`
	Results       []Row   `json:"results"`
	RowCount      int     `json:"row_count"`
	ExecutionTime float64 `json:"execution_time"`
	Error         string  `json:"error,omitempty"`
}

// Facade runs SQL statements over short-lived connections.
type Facade struct {
	log      *slog.Logger
	provider database.Provider
	clock    clockwork.Clock
}

type FacadeConfig struct {
	Logger   *slog.Logger
	Provider database.Provider
	Clock    clockwork.Clock
}

func (cfg *FacadeConfig) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Provider == nil {
		return fmt.Errorf("provider is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

func NewFacade(cfg FacadeConfig) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate facade config: %w", err)
	}
	return &Facade{
		log:      cfg.Logger,
		provider: cfg.Provider,
		clock:    cfg.Clock,
	}, nil
}

// Execute runs sqlText verbatim. The statement is the caller's to shape:
// there is no parameterization and no allow-listing, by contract with the
// SQL-generating client.
//
// The error return is non-nil only when a connection cannot be acquired;
// that is an infrastructure fault and fails fast. Every failure after a
// connection exists is data-level and comes back inside the Result.
func (f *Facade) Execute(ctx context.Context, sqlText string) (Result, error) {
	start := f.clock.Now()

	conn, err := f.provider.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			f.log.Error("query: failed to close connection", "error", err)
		}
	}()

	rows, err := conn.Query(ctx, sqlText)
	if err != nil {
		return f.failure(sqlText, start, err), nil
	}

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	results := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			rows.Close()
			return f.failure(sqlText, start, fmt.Errorf("failed to read row: %w", err)), nil
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		results = append(results, row)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return f.failure(sqlText, start, err), nil
	}

	// A statement that produced column metadata is a read; the row count is
	// the number of records fetched. Anything else is a write and the count
	// comes from the driver's command tag.
	rowCount := len(results)
	if len(columns) == 0 {
		rowCount = int(rows.CommandTag().RowsAffected())
	}

	return Result{
		SQLQuery:      sqlText,
		Results:       results,
		RowCount:      rowCount,
		ExecutionTime: f.clock.Since(start).Seconds(),
	}, nil
}

func (f *Facade) failure(sqlText string, start time.Time, err error) Result {
	f.log.Error("query: execution failed", "error", err)
	return Result{
		SQLQuery:      sqlText,
		Results:       make([]Row, 0),
		RowCount:      0,
		ExecutionTime: f.clock.Since(start).Seconds(),
		Error:         err.Error(),
	}
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
