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

type NaturalLanguageInput struct {
	Query string `json:"query" jsonschema:"Natural language description of what you want to query from the database"`
}

const naturalLanguageDescription = `Convert a natural language query to SQL and execute it against the PostgreSQL database.

This tool takes a natural language description of what you want to query from the database, automatically retrieves the database schema, and provides the context the LLM client needs to generate the SQL. The client generates the SQL and then calls execute_sql_query with it.

Examples:
- "Show me all users who signed up in the last month"
- "What are the top 10 products by sales?"
- "Count the number of orders per customer"
- "Find customers who haven't placed an order in 30 days"
- "Get the total revenue for each month this year"`

func RegisterNaturalLanguageTool(log *slog.Logger, server *mcp.Server, relay NaturalLanguageRelay) error {
	req, err := jsonschema.For[NaturalLanguageInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create natural_language_query input schema: %w", err)
	}

	res, err := jsonschema.For[query.Result](nil)
	if err != nil {
		return fmt.Errorf("failed to create natural_language_query output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "natural_language_query",
		Description:  naturalLanguageDescription,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req NaturalLanguageInput) (*mcp.CallToolResult, query.Result, error) {
		startTime := time.Now()
		toolName := "natural_language_query"

		log.Info("tool: processing natural language query", "query", req.Query)
		res := relay.Query(ctx, req.Query)

		duration := time.Since(startTime).Seconds()
		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, res, nil
	})
	return nil
}
