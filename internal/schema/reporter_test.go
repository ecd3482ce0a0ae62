package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/database"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// catalogRow mirrors one row of the information_schema join.
type catalogRow struct {
	table      string
	column     string
	dataType   string
	isNullable string
	colDefault *string
	maxLength  *int
}

type fakeRows struct {
	rows    []catalogRow
	idx     int
	iterErr error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.iterErr }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, errors.New("not implemented") }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) != 6 {
		return fmt.Errorf("unexpected dest count: %d", len(dest))
	}
	row := r.rows[r.idx-1]
	*(dest[0].(*string)) = row.table
	*(dest[1].(*string)) = row.column
	*(dest[2].(*string)) = row.dataType
	*(dest[3].(*string)) = row.isNullable
	*(dest[4].(**string)) = row.colDefault
	*(dest[5].(**int)) = row.maxLength
	return nil
}

type fakeConn struct {
	rows     *fakeRows
	queryErr error
	lastSQL  string
	lastArgs []any
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.lastSQL = sql
	c.lastArgs = args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.rows, nil
}

func (c *fakeConn) Close(ctx context.Context) error { return nil }

type fakeProvider struct {
	conn       *fakeConn
	acquireErr error
}

func (p *fakeProvider) Acquire(ctx context.Context) (database.Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.conn, nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func newTestReporter(t *testing.T, provider database.Provider) *Reporter {
	t.Helper()
	r, err := NewReporter(ReporterConfig{
		Logger:   testLogger(t),
		Provider: provider,
	})
	require.NoError(t, err)
	return r
}

func TestSchema_Reporter_Describe(t *testing.T) {
	t.Parallel()

	t.Run("groups columns by table preserving order", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{rows: &fakeRows{rows: []catalogRow{
			{table: "orders", column: "id", dataType: "integer", isNullable: "NO", colDefault: strPtr("nextval('orders_id_seq')")},
			{table: "orders", column: "total", dataType: "numeric", isNullable: "YES"},
			{table: "users", column: "id", dataType: "integer", isNullable: "NO"},
			{table: "users", column: "name", dataType: "character varying", isNullable: "YES", maxLength: intPtr(255)},
		}}}
		r := newTestReporter(t, &fakeProvider{conn: conn})

		desc, err := r.Describe(t.Context())
		require.NoError(t, err)
		require.Equal(t, 2, desc.TableCount())

		require.Equal(t, []Column{
			{Name: "id", Type: "integer", Nullable: false, Default: strPtr("nextval('orders_id_seq')")},
			{Name: "total", Type: "numeric", Nullable: true},
		}, desc.Tables["orders"])

		users := desc.Tables["users"]
		require.Len(t, users, 2)
		require.Equal(t, "id", users[0].Name)
		require.Equal(t, "name", users[1].Name)
		require.Equal(t, 255, *users[1].MaxLength)
		require.Nil(t, users[0].MaxLength)
	})

	t.Run("queries the configured namespace", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{rows: &fakeRows{}}
		r, err := NewReporter(ReporterConfig{
			Logger:     testLogger(t),
			Provider:   &fakeProvider{conn: conn},
			SchemaName: "reporting",
		})
		require.NoError(t, err)

		_, err = r.Describe(t.Context())
		require.NoError(t, err)
		require.Equal(t, []any{"reporting"}, conn.lastArgs)
		require.Contains(t, conn.lastSQL, "information_schema.tables")
		require.Contains(t, conn.lastSQL, "ordinal_position")
	})

	t.Run("empty catalog yields empty non-nil mapping", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{rows: &fakeRows{}}
		r := newTestReporter(t, &fakeProvider{conn: conn})

		desc, err := r.Describe(t.Context())
		require.NoError(t, err)
		require.NotNil(t, desc.Tables)
		require.Equal(t, 0, desc.TableCount())
	})

	t.Run("propagates query failure", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{queryErr: errors.New("permission denied")}
		r := newTestReporter(t, &fakeProvider{conn: conn})

		_, err := r.Describe(t.Context())
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to query schema")
	})

	t.Run("propagates connection failure", func(t *testing.T) {
		t.Parallel()

		r := newTestReporter(t, &fakeProvider{acquireErr: errors.New("connection refused")})

		_, err := r.Describe(t.Context())
		require.Error(t, err)
	})
}

func TestSchema_Descriptor_Text(t *testing.T) {
	t.Parallel()

	t.Run("renders tables and columns", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{rows: &fakeRows{rows: []catalogRow{
			{table: "t", column: "id", dataType: "integer", isNullable: "NO"},
			{table: "t", column: "name", dataType: "text", isNullable: "YES"},
		}}}
		r := newTestReporter(t, &fakeProvider{conn: conn})

		desc, err := r.Describe(t.Context())
		require.NoError(t, err)
		require.Equal(t,
			"Database Schema:\n\nTable: t\n  - id (integer, nullable: NO)\n  - name (text, nullable: YES)\n",
			desc.Text(),
		)
	})

	t.Run("repeated describes render identical text", func(t *testing.T) {
		t.Parallel()

		rows := []catalogRow{
			{table: "a", column: "x", dataType: "bigint", isNullable: "NO"},
			{table: "b", column: "y", dataType: "text", isNullable: "YES"},
		}
		provider := &fakeProvider{conn: &fakeConn{rows: &fakeRows{rows: rows}}}
		r := newTestReporter(t, provider)

		first := r.SchemaText(t.Context())

		// Fresh result set, same catalog state.
		provider.conn = &fakeConn{rows: &fakeRows{rows: rows}}
		second := r.SchemaText(t.Context())
		require.Equal(t, first, second)
	})

	t.Run("empty schema renders header only", func(t *testing.T) {
		t.Parallel()

		r := newTestReporter(t, &fakeProvider{conn: &fakeConn{rows: &fakeRows{}}})
		require.Equal(t, "Database Schema:\n", r.SchemaText(t.Context()))
	})
}

func TestSchema_Reporter_SchemaText_Failure(t *testing.T) {
	t.Parallel()

	t.Run("returns fixed text on query failure", func(t *testing.T) {
		t.Parallel()

		r := newTestReporter(t, &fakeProvider{conn: &fakeConn{queryErr: errors.New("boom")}})
		require.Equal(t, FailureText, r.SchemaText(t.Context()))
	})

	t.Run("returns fixed text on connection failure", func(t *testing.T) {
		t.Parallel()

		r := newTestReporter(t, &fakeProvider{acquireErr: errors.New("refused")})
		require.Equal(t, FailureText, r.SchemaText(t.Context()))
	})
}
