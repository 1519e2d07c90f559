package domain

import "time"

// StepStatus is the terminal state recorded for an event.
type StepStatus string

const (
	StepExecuted StepStatus = "executed"
	StepFailed   StepStatus = "failed"
)

// Metadata keys written by the orchestrator.
const (
	MetaFailure    = "failure"
	MetaError      = "error"
	MetaReport     = "report"
	MetaFindings   = "findings"
	MetaForced     = "forced"
	MetaSetupExit  = "setup_exit_code"
	FailureTimeout = "timeout"
	FailureLaunch  = "launch"
	FailureCancel  = "cancelled"
	FailureSetup   = "setup"
)

// TelemetryEvent records one attempted step. ExitCode is nil when the
// process never produced one (launch failure, timeout, cancellation).
type TelemetryEvent struct {
	Tool      string            `json:"tool"`
	Language  Language          `json:"language,omitempty"`
	Command   []string          `json:"command"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
	Duration  time.Duration     `json:"duration_ns"`
	ExitCode  *int              `json:"exit_code"`
	Status    StepStatus        `json:"status"`
	Severity  Severity          `json:"severity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewTelemetryEvent derives Duration from the timestamps, clamped at zero.
func NewTelemetryEvent(step PlanStep, started, ended time.Time, exitCode *int, status StepStatus, severity Severity, metadata map[string]string) TelemetryEvent {
	command := append([]string(nil), step.Argv...)
	return TelemetryEvent{
		Tool:      step.Tool,
		Language:  step.Language,
		Command:   command,
		StartedAt: started,
		EndedAt:   ended,
		Duration:  ClampDuration(ended.Sub(started)),
		ExitCode:  exitCode,
		Status:    status,
		Severity:  severity,
		Metadata:  metadata,
	}
}

// Label names the event in notes.
func (e TelemetryEvent) Label() string {
	return stepLabel(e.Tool, e.Language)
}

// TelemetryRun aggregates the events of one orchestrator invocation.
type TelemetryRun struct {
	ID                string            `json:"id"`
	Fingerprint       string            `json:"fingerprint"`
	Root              string            `json:"root,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	EndedAt           time.Time         `json:"ended_at"`
	Duration          time.Duration     `json:"duration_ns"`
	Events            []TelemetryEvent  `json:"events"`
	Notes             []string          `json:"notes"`
	SeverityFilter    Severity          `json:"severity_filter"`
	EffectiveSeverity Severity          `json:"effective_severity"`
	Gate              Gate              `json:"gate"`
	Cancelled         bool              `json:"cancelled,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ClampDuration never lets clock skew produce a negative duration.
func ClampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// IntPtr is a helper for optional exit codes.
func IntPtr(v int) *int {
	return &v
}

// TelemetryScan is the raw read of one fingerprint's history: valid runs in
// append order plus any lines that could not be decoded.
type TelemetryScan struct {
	Runs    []TelemetryRun
	Corrupt []CorruptRecord
}
