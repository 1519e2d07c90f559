package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

const (
	defaultHistoryLimit = domain.DefaultHistoryLimit
	maxHistoryLimit     = domain.MaxHistoryCap
)

// PlanTool handles the analysis_plan MCP tool.
type PlanTool struct {
	plan PlanFunc
}

// NewPlanTool creates a PlanTool.
func NewPlanTool(plan PlanFunc) *PlanTool {
	return &PlanTool{plan: plan}
}

// Definition returns the MCP tool definition for analysis_plan.
func (t *PlanTool) Definition() mcp.Tool {
	return mcp.NewTool("analysis_plan",
		mcp.WithDescription("Build the analysis plan for the repository without running it. "+
			"Returns the plan steps, tool availability and the plan fingerprint as JSON."),
		mcp.WithString("tools",
			mcp.Description("Comma-separated tool ids to narrow the plan to (default: all)"),
		),
	)
}

// Handle processes the analysis_plan tool call.
func (t *PlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, fingerprint, err := t.plan(ctx, splitList(req.GetString("tools", "")))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build plan: %v", err)), nil
	}
	return jsonResult(map[string]any{"fingerprint": fingerprint, "plan": p})
}

// HistoryTool handles the analysis_history MCP tool.
type HistoryTool struct {
	plan  PlanFunc
	store ports.TelemetryStore
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(plan PlanFunc, store ports.TelemetryStore) *HistoryTool {
	return &HistoryTool{plan: plan, store: store}
}

// Definition returns the MCP tool definition for analysis_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("analysis_history",
		mcp.WithDescription("List recorded runs for a plan fingerprint, most recent first."),
		mcp.WithString("fingerprint",
			mcp.Description("Plan fingerprint (default: the current plan's)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max runs (default: %d)", defaultHistoryLimit)),
		),
	)
}

// Handle processes the analysis_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultError("telemetry store is off"), nil
	}
	fingerprint, errResult := resolveFingerprint(ctx, t.plan, req)
	if errResult != nil {
		return errResult, nil
	}
	limit := intArg(req, "limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		return mcp.NewToolResultError(fmt.Sprintf("'limit' must be between 1 and %d", maxHistoryLimit)), nil
	}

	runs, err := t.store.History(fingerprint, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No runs recorded for %s.", fingerprint)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d run(s) for %s:\n\n", len(runs), fingerprint)
	for _, run := range runs {
		fmt.Fprintf(&b, "- %s %s gate=%s severity=%s events=%d",
			run.StartedAt.Format(domain.TimestampFormat), run.ID, run.Gate, run.EffectiveSeverity, len(run.Events))
		if run.Cancelled {
			b.WriteString(" (cancelled)")
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// LatestTool handles the analysis_latest MCP tool.
type LatestTool struct {
	plan  PlanFunc
	store ports.TelemetryStore
}

// NewLatestTool creates a LatestTool.
func NewLatestTool(plan PlanFunc, store ports.TelemetryStore) *LatestTool {
	return &LatestTool{plan: plan, store: store}
}

// Definition returns the MCP tool definition for analysis_latest.
func (t *LatestTool) Definition() mcp.Tool {
	return mcp.NewTool("analysis_latest",
		mcp.WithDescription("Return the most recent recorded run for a plan fingerprint as JSON, "+
			"including every event, note and the gate verdict."),
		mcp.WithString("fingerprint",
			mcp.Description("Plan fingerprint (default: the current plan's)"),
		),
	)
}

// Handle processes the analysis_latest tool call.
func (t *LatestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultError("telemetry store is off"), nil
	}
	fingerprint, errResult := resolveFingerprint(ctx, t.plan, req)
	if errResult != nil {
		return errResult, nil
	}
	run, err := t.store.Latest(fingerprint)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read latest run: %v", err)), nil
	}
	if run == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No runs recorded for %s.", fingerprint)), nil
	}
	return jsonResult(run)
}

func resolveFingerprint(ctx context.Context, plan PlanFunc, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	if fp := strings.TrimSpace(req.GetString("fingerprint", "")); fp != "" {
		return fp, nil
	}
	if plan == nil {
		return "", mcp.NewToolResultError("'fingerprint' is required")
	}
	_, fingerprint, err := plan(ctx, nil)
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("failed to fingerprint current plan: %v", err))
	}
	return fingerprint, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg extracts a numeric argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
