package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/query"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/server/metrics"
)

type ExecuteSQLInput struct {
	SQLQuery    string `json:"sql_query" jsonschema:"SQL query to execute against the PostgreSQL database"`
	Description string `json:"description,omitempty" jsonschema:"Optional description of what the query does"`
}

const executeSQLDescription = `Execute a SQL query against the PostgreSQL database and return the results.

This tool takes a SQL query and executes it directly against the database. The LLM client should handle the conversion from natural language to SQL and any result transformation.

Examples:
- "SELECT * FROM users WHERE created_at >= NOW() - INTERVAL '1 month'"
- "SELECT product_name, SUM(sales_amount) FROM sales GROUP BY product_name ORDER BY SUM(sales_amount) DESC LIMIT 10"
- "SELECT customer_id, COUNT(*) as order_count FROM orders GROUP BY customer_id"`

func RegisterExecuteSQLTool(log *slog.Logger, server *mcp.Server, executor SQLExecutor) error {
	req, err := jsonschema.For[ExecuteSQLInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create execute_sql_query input schema: %w", err)
	}

	res, err := jsonschema.For[query.Result](nil)
	if err != nil {
		return fmt.Errorf("failed to create execute_sql_query output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "execute_sql_query",
		Description:  executeSQLDescription,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req ExecuteSQLInput) (*mcp.CallToolResult, query.Result, error) {
		startTime := time.Now()
		toolName := "execute_sql_query"
		res := handleExecuteSQL(ctx, log, executor, req)
		duration := time.Since(startTime).Seconds()

		status := "success"
		if res.Error != "" {
			status = "error"
		}
		metrics.ToolCallsTotal.WithLabelValues(toolName, status).Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, res, nil
	})
	return nil
}

func handleExecuteSQL(ctx context.Context, log *slog.Logger, executor SQLExecutor, req ExecuteSQLInput) query.Result {
	log.Info("tool: executing sql query", "sql", req.SQLQuery, "description", req.Description)

	res, err := executor.Execute(ctx, req.SQLQuery)
	if err != nil {
		// Connection acquisition failed. This is the outermost boundary, so
		// the fault becomes an in-band error result instead of crossing the
		// transport.
		log.Error("tool: sql execution failed", "error", err)
		return query.Result{
			SQLQuery: req.SQLQuery,
			Results:  make([]query.Row, 0),
			Error:    err.Error(),
		}
	}
	return res
}
