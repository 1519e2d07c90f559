// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The application services (plan building, run
// orchestration, diagnostics) depend only on these abstractions, so probing,
// subprocess execution, report parsing and telemetry persistence can each be
// swapped or faked independently.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., TelemetryStore, StepRunner)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/emperator-dev/emperator/internal/domain"
)

// ConfigProvider loads the effective configuration.
// Implementations layer the embedded defaults, .emperator/config.yaml and the environment.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// CapabilityProber detects languages under root and analyzer binaries on the host.
// Tool absence is reported as data; only an unreadable root is an error.
type CapabilityProber interface {
	Probe(ctx context.Context, root string) ([]domain.LanguageProfile, []domain.ToolAvailability, error)
}

// StepResult is what a StepRunner observed from a finished subprocess.
type StepResult struct {
	ExitCode      int
	Stdout        []byte
	Stderr        []byte
	SetupExitCode *int
}

// StepRunner executes one plan step as a subprocess rooted at dir.
// It returns an error wrapping domain.ErrStepLaunch or domain.ErrStepTimeout
// when no exit code could be observed.
type StepRunner interface {
	Run(ctx context.Context, step domain.PlanStep, dir string) (StepResult, error)
}

// Findings summarises an analyzer report.
type Findings struct {
	Severity domain.Severity
	Count    int
	Source   string
	Parsed   bool
}

// ReportParser extracts the maximum severity from a step's report.
type ReportParser interface {
	Parse(step domain.PlanStep, stdout []byte) (Findings, error)
}

// TelemetryStore persists runs keyed by fingerprint.
// History and Latest return the most recent append first.
type TelemetryStore interface {
	Append(run domain.TelemetryRun) error
	History(fingerprint string, limit int) ([]domain.TelemetryRun, error)
	Latest(fingerprint string) (*domain.TelemetryRun, error)
}

// TelemetryAuditor is implemented by stores that can report skipped records.
type TelemetryAuditor interface {
	Scan(fingerprint string) (domain.TelemetryScan, error)
}

// ProgressReporter receives incremental feedback while a plan runs.
type ProgressReporter interface {
	OnStepStart(index, total int, step domain.PlanStep)
	OnStepComplete(index, total int, event domain.TelemetryEvent)
	OnStepSkipped(index, total int, step domain.PlanStep, reason string)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stderr text, JSON).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
