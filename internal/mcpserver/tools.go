// Package mcpserver exposes scheduler state via MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/ledger"
	"github.com/replyhive/replyhive-go/internal/queue"
	"github.com/replyhive/replyhive-go/internal/rollover"
)

// Deps holds the collaborators the tools read from.
type Deps struct {
	Ctrl   *admission.Controller
	Ledger ledger.Store
	Queue  queue.Store
	Proc   *rollover.Processor
}

// RegisterTools registers all scheduler MCP tools on the given server.
func RegisterTools(server *mcp.Server, d Deps) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "window_status",
			Description: "Get the current window's global call count, ceiling, and processed accounts",
		},
		windowStatusHandler(d),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "tenant_usage",
			Description: "Get a tenant's call counts for the current window",
		},
		tenantUsageHandler(d),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "queue_depth",
			Description: "Get deferred-queue item counts by status",
		},
		queueDepthHandler(d),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "trigger_rollover",
			Description: "Run one idempotent window-rollover pass and report the result",
		},
		triggerRolloverHandler(d),
	)
}

type emptyInput struct{}

func windowStatusHandler(d Deps) mcp.ToolHandlerFor[emptyInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		usage, err := d.Ledger.Global(ctx, d.Ctrl.Window())
		if err != nil {
			return nil, nil, fmt.Errorf("window_status: %w", err)
		}
		return textResult(usage)
	}
}

type tenantInput struct {
	TenantID string `json:"tenant_id"`
}

func tenantUsageHandler(d Deps) mcp.ToolHandlerFor[tenantInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input tenantInput) (*mcp.CallToolResult, any, error) {
		if input.TenantID == "" {
			return errorResult("tenant_id is required"), nil, nil
		}
		usage, err := d.Ledger.Tenant(ctx, input.TenantID, d.Ctrl.Window())
		if err != nil {
			return nil, nil, fmt.Errorf("tenant_usage: %w", err)
		}
		return textResult(usage)
	}
}

func queueDepthHandler(d Deps) mcp.ToolHandlerFor[emptyInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		depth, err := d.Queue.Depth(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("queue_depth: %w", err)
		}
		return textResult(depth)
	}
}

func triggerRolloverHandler(d Deps) mcp.ToolHandlerFor[emptyInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		report, err := d.Proc.Run(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("trigger_rollover: %w", err)
		}
		return textResult(report)
	}
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
