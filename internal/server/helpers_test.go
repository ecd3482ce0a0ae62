package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/database"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/query"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/schema"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeExecutor struct {
	result     query.Result
	acquireErr error
	lastSQL    string
}

func (e *fakeExecutor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	e.lastSQL = sqlText
	if e.acquireErr != nil {
		return query.Result{}, e.acquireErr
	}
	return e.result, nil
}

type fakeReporter struct {
	desc schema.Descriptor
	err  error
}

func (r *fakeReporter) Describe(ctx context.Context) (schema.Descriptor, error) {
	if r.err != nil {
		return schema.Descriptor{}, r.err
	}
	return r.desc, nil
}

func (r *fakeReporter) SchemaText(ctx context.Context) string {
	if r.err != nil {
		return schema.FailureText
	}
	return r.desc.Text()
}

type fakeRelay struct {
	result query.Result
}

func (r *fakeRelay) Query(ctx context.Context, userQuery string) query.Result {
	return r.result
}

type fakeProvider struct {
	acquireErr error
}

type noopConn struct{}

func (noopConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (noopConn) Close(ctx context.Context) error { return nil }

func (p *fakeProvider) Acquire(ctx context.Context) (database.Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return noopConn{}, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Logger:     testLogger(t),
		Executor:   &fakeExecutor{},
		Reporter:   &fakeReporter{},
		Relay:      &fakeRelay{},
		Provider:   &fakeProvider{},
		Version:    "test",
		ListenAddr: "127.0.0.1:0",
	}
}
