package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/schema"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/server/metrics"
)

type SchemaInput struct{}

type SchemaOutput struct {
	Tables     map[string][]schema.Column `json:"tables"`
	TableCount int                        `json:"table_count"`
	SchemaText string                     `json:"schema_text"`
	Status     string                     `json:"status"`
	Error      string                     `json:"error,omitempty"`
}

const schemaDescription = `Get the database schema information to help with SQL query generation.

This tool returns detailed information about all tables, columns, and their types in the PostgreSQL database. The LLM client can use this information to generate accurate SQL queries.

Returns:
- tables: Mapping of tables to their columns and data types
- table_count: Total number of tables
- schema_text: Formatted schema information for easy reading`

func RegisterSchemaTool(log *slog.Logger, server *mcp.Server, reporter SchemaDescriber) error {
	req, err := jsonschema.For[SchemaInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_database_schema input schema: %w", err)
	}

	res, err := jsonschema.For[SchemaOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_database_schema output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "get_database_schema",
		Description:  schemaDescription,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req SchemaInput) (*mcp.CallToolResult, SchemaOutput, error) {
		startTime := time.Now()
		toolName := "get_database_schema"
		res := handleSchema(ctx, log, reporter)
		duration := time.Since(startTime).Seconds()

		metrics.ToolCallsTotal.WithLabelValues(toolName, res.Status).Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, res, nil
	})
	return nil
}

func handleSchema(ctx context.Context, log *slog.Logger, reporter SchemaDescriber) SchemaOutput {
	log.Info("tool: retrieving database schema")

	desc, err := reporter.Describe(ctx)
	if err != nil {
		log.Error("tool: schema retrieval failed", "error", err)
		return SchemaOutput{
			Tables:     map[string][]schema.Column{},
			TableCount: 0,
			SchemaText: fmt.Sprintf("Error retrieving schema: %s", err),
			Status:     "error",
			Error:      err.Error(),
		}
	}

	return SchemaOutput{
		Tables:     desc.Tables,
		TableCount: desc.TableCount(),
		SchemaText: desc.Text(),
		Status:     "success",
	}
}
