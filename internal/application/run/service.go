package run

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

// runNamespace seeds the name-based run identifiers.
var runNamespace = uuid.MustParse("6f0d4c1e-3b7a-5d2e-9a41-2c8e7f5b0d13")

// Options are the per-invocation knobs of Service.Run.
type Options struct {
	// ToolFilter limits execution to these tool ids. Empty means all.
	ToolFilter     []string
	SeverityFilter domain.Severity
	IncludeUnready bool
	FailurePolicy  domain.FailurePolicy
	// HardCancel kills the in-flight subprocess on cancellation instead of
	// letting it finish.
	HardCancel  bool
	StepTimeout time.Duration
	// Metadata is copied onto the persisted run.
	Metadata map[string]string
}

// Service executes analysis plans and records their telemetry.
type Service struct {
	Runner   ports.StepRunner
	Parser   ports.ReportParser
	Store    ports.TelemetryStore
	Logger   ports.Logger
	Progress ports.ProgressReporter
	Now      func() time.Time
}

// Run executes plan steps sequentially in plan order and persists exactly
// one TelemetryRun. Skipped steps appear only in the run notes.
//
// The returned run is always populated. A non-nil error is a
// *domain.StoreError from the final append; the run is still valid for
// reporting in that case.
func (s *Service) Run(ctx context.Context, plan domain.AnalysisPlan, fingerprint string, opts Options) (domain.TelemetryRun, error) {
	if s.Runner == nil || s.Logger == nil {
		return domain.TelemetryRun{}, errors.New("run.Service dependencies not satisfied")
	}
	progress := s.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	started := s.now()
	ctx, span := startRunSpan(ctx, fingerprint, len(plan.Steps))
	defer span.End()

	run := domain.TelemetryRun{
		ID:             runID(fingerprint, started),
		Fingerprint:    fingerprint,
		Root:           plan.Root,
		StartedAt:      started,
		SeverityFilter: opts.SeverityFilter,
		Events:         []domain.TelemetryEvent{},
		Notes:          []string{},
		Metadata:       copyMetadata(opts.Metadata),
	}

	wanted := toolSet(opts.ToolFilter)
	total := len(plan.Steps)
	for i, step := range plan.Steps {
		if ctx.Err() != nil {
			run.Cancelled = true
			run.Notes = append(run.Notes, fmt.Sprintf(
				"run cancelled before %s; %d step(s) not attempted", step.Label(), total-i))
			break
		}

		if len(wanted) > 0 && !wanted[step.Tool] {
			reason := "excluded by tool filter"
			run.Notes = append(run.Notes, fmt.Sprintf("Skipped %s: %s", step.Label(), reason))
			progress.OnStepSkipped(i, total, step, reason)
			continue
		}

		forced := false
		if !step.Ready {
			if !opts.IncludeUnready {
				reason := orDefault(step.Reason, "not ready")
				run.Notes = append(run.Notes, fmt.Sprintf("Skipped %s: %s", step.Label(), reason))
				progress.OnStepSkipped(i, total, step, reason)
				continue
			}
			forced = true
			run.Notes = append(run.Notes, fmt.Sprintf(
				"Forced execution for %s (%s)", step.Label(), orDefault(step.Reason, "not ready")))
		}

		progress.OnStepStart(i, total, step)
		event, note := s.execute(ctx, plan.Root, step, opts)
		if forced {
			event.Metadata[domain.MetaForced] = "true"
		}
		if note != "" {
			run.Notes = append(run.Notes, note)
		}
		run.Events = append(run.Events, event)
		progress.OnStepComplete(i, total, event)

		if event.Metadata[domain.MetaFailure] == domain.FailureCancel {
			run.Cancelled = true
			if rest := total - i - 1; rest > 0 {
				run.Notes = append(run.Notes, fmt.Sprintf(
					"run cancelled during %s; %d step(s) not attempted", step.Label(), rest))
			} else {
				run.Notes = append(run.Notes, fmt.Sprintf("run cancelled during %s", step.Label()))
			}
			break
		}
	}

	if len(run.Events) == 0 && !run.Cancelled {
		if plan.ReadySteps() == 0 && !opts.IncludeUnready {
			run.Notes = append(run.Notes, "No analyzers were available for this plan; nothing was executed")
		} else {
			run.Notes = append(run.Notes, "No steps were executed; every step was skipped")
		}
	}
	if run.Cancelled {
		run.Notes = append(run.Notes, "run incomplete: cancelled; partial telemetry recorded")
	}

	decision := domain.EvaluateGate(run.Events, opts.SeverityFilter, opts.FailurePolicy)
	run.Gate = decision.Gate
	run.EffectiveSeverity = decision.Effective
	run.Notes = append(run.Notes, decision.Notes...)

	run.EndedAt = s.now()
	run.Duration = domain.ClampDuration(run.EndedAt.Sub(run.StartedAt))
	setRunSpanResult(span, run)
	recordRunMetrics(ctx, run)

	if s.Store == nil {
		return run, nil
	}
	if err := s.Store.Append(run); err != nil {
		s.Logger.Error("telemetry append failed", err, map[string]interface{}{
			"fingerprint": fingerprint,
			"run_id":      run.ID,
		})
		var storeErr *domain.StoreError
		if !errors.As(err, &storeErr) {
			err = &domain.StoreError{Op: "append", Err: err}
		}
		return run, err
	}
	s.Logger.Debug("telemetry persisted", map[string]interface{}{
		"fingerprint": fingerprint,
		"run_id":      run.ID,
		"events":      len(run.Events),
	})
	return run, nil
}

// execute runs one step and turns the outcome into an event plus an
// optional note.
func (s *Service) execute(ctx context.Context, root string, step domain.PlanStep, opts Options) (domain.TelemetryEvent, string) {
	stepCtx := ctx
	if !opts.HardCancel {
		stepCtx = context.WithoutCancel(ctx)
	}
	if opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, opts.StepTimeout)
		defer cancel()
	}
	stepCtx, span := startStepSpan(stepCtx, step)
	defer span.End()

	started := s.now()
	res, err := s.Runner.Run(stepCtx, step, root)
	ended := s.now()
	meta := map[string]string{}

	if err != nil {
		kind := failureKind(err)
		meta[domain.MetaFailure] = kind
		meta[domain.MetaError] = err.Error()
		event := domain.NewTelemetryEvent(step, started, ended, nil, domain.StepFailed, domain.SeverityNone, meta)
		s.Logger.Warn("step failed", map[string]interface{}{
			"step":    step.Label(),
			"failure": kind,
			"error":   err.Error(),
		})
		finishStep(stepCtx, span, event)
		return event, failureNote(step, kind, err, opts.StepTimeout)
	}

	if res.SetupExitCode != nil {
		meta[domain.MetaFailure] = domain.FailureSetup
		meta[domain.MetaSetupExit] = strconv.Itoa(*res.SetupExitCode)
		event := domain.NewTelemetryEvent(step, started, ended, nil, domain.StepFailed, domain.SeverityNone, meta)
		finishStep(stepCtx, span, event)
		return event, fmt.Sprintf("%s setup exited with code %d; analysis did not run", step.Label(), *res.SetupExitCode)
	}

	severity, note := s.severity(step, res, meta)
	event := domain.NewTelemetryEvent(step, started, ended, domain.IntPtr(res.ExitCode), domain.StepExecuted, severity, meta)
	s.Logger.Info("step completed", map[string]interface{}{
		"step":      step.Label(),
		"exit_code": res.ExitCode,
		"severity":  severity.String(),
	})
	finishStep(stepCtx, span, event)
	return event, note
}

// severity derives the observed severity from the step's report, falling
// back to the tool's exit severity when the report says nothing and the
// process exited non-zero.
func (s *Service) severity(step domain.PlanStep, res ports.StepResult, meta map[string]string) (domain.Severity, string) {
	var note string
	if s.Parser != nil {
		findings, err := s.Parser.Parse(step, res.Stdout)
		switch {
		case err != nil:
			meta[domain.MetaError] = err.Error()
			note = fmt.Sprintf("%s report could not be parsed: %v", step.Label(), err)
			s.Logger.Warn("report parse failed", map[string]interface{}{"step": step.Label(), "error": err.Error()})
		case findings.Parsed:
			meta[domain.MetaFindings] = strconv.Itoa(findings.Count)
			if findings.Source != "" {
				meta[domain.MetaReport] = findings.Source
			}
			return findings.Severity, ""
		}
	}
	if res.ExitCode != 0 {
		return step.ExitSeverity, note
	}
	return domain.SeverityNone, note
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrStepTimeout):
		return domain.FailureTimeout
	case errors.Is(err, context.Canceled):
		return domain.FailureCancel
	default:
		return domain.FailureLaunch
	}
}

func failureNote(step domain.PlanStep, kind string, err error, timeout time.Duration) string {
	switch kind {
	case domain.FailureTimeout:
		return fmt.Sprintf("%s timed out after %s and was terminated", step.Label(), timeout)
	case domain.FailureCancel:
		return fmt.Sprintf("%s was interrupted by cancellation", step.Label())
	default:
		return fmt.Sprintf("Failed to launch %s: %v", step.Label(), err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func runID(fingerprint string, started time.Time) string {
	name := fingerprint + "|" + started.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(runNamespace, []byte(name)).String()
}

func toolSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

type nopProgress struct{}

func (nopProgress) OnStepStart(int, int, domain.PlanStep)           {}
func (nopProgress) OnStepComplete(int, int, domain.TelemetryEvent)  {}
func (nopProgress) OnStepSkipped(int, int, domain.PlanStep, string) {}
