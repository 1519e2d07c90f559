// Package mcp exposes read-only plan and telemetry queries over the Model
// Context Protocol (stdio transport).
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

// PlanFunc builds the current plan, narrowed to tools, with its fingerprint.
type PlanFunc func(ctx context.Context, tools []string) (domain.AnalysisPlan, string, error)

// Deps are the collaborators the tools need. Store may be nil when
// telemetry is off.
type Deps struct {
	Plan  PlanFunc
	Store ports.TelemetryStore
}

// New creates the MCP server with every tool registered.
func New(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"emperator",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	planTool := NewPlanTool(deps.Plan)
	s.AddTool(planTool.Definition(), planTool.Handle)

	historyTool := NewHistoryTool(deps.Plan, deps.Store)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	latestTool := NewLatestTool(deps.Plan, deps.Store)
	s.AddTool(latestTool.Definition(), latestTool.Handle)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = "emperator plans static-analysis runs over a repository and records their " +
	"telemetry. Use analysis_plan to see which analyzers would run, analysis_history and " +
	"analysis_latest to read recorded runs and their PASS/REVIEW/BLOCK gate."
