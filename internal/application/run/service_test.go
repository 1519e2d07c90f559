package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/telemetry"
	"github.com/emperator-dev/emperator/internal/pkg/logger"
	"github.com/emperator-dev/emperator/internal/ports"
)

type outcome struct {
	result   ports.StepResult
	err      error
	severity domain.Severity
	parsed   bool
	// hook runs inside Runner.Run before the outcome is returned.
	hook func(ctx context.Context) error
}

type stubRunner struct {
	outcomes map[string]outcome
	calls    []string
}

func (r *stubRunner) Run(ctx context.Context, step domain.PlanStep, _ string) (ports.StepResult, error) {
	r.calls = append(r.calls, step.Tool)
	out := r.outcomes[step.Tool]
	if out.hook != nil {
		if err := out.hook(ctx); err != nil {
			return ports.StepResult{}, err
		}
	}
	return out.result, out.err
}

type stubParser struct {
	outcomes map[string]outcome
}

func (p stubParser) Parse(step domain.PlanStep, _ []byte) (ports.Findings, error) {
	out := p.outcomes[step.Tool]
	if !out.parsed {
		return ports.Findings{}, nil
	}
	return ports.Findings{Severity: out.severity, Count: 1, Source: "stub", Parsed: true}, nil
}

type failingStore struct{}

func (failingStore) Append(domain.TelemetryRun) error {
	return &domain.StoreError{Op: "append", Path: "/nope/x.jsonl", Err: errors.New("disk full")}
}

func (failingStore) History(string, int) ([]domain.TelemetryRun, error) { return nil, nil }
func (failingStore) Latest(string) (*domain.TelemetryRun, error)        { return nil, nil }

type recordingProgress struct {
	started, completed, skipped []string
}

func (p *recordingProgress) OnStepStart(_, _ int, step domain.PlanStep) {
	p.started = append(p.started, step.Tool)
}

func (p *recordingProgress) OnStepComplete(_, _ int, ev domain.TelemetryEvent) {
	p.completed = append(p.completed, ev.Tool)
}

func (p *recordingProgress) OnStepSkipped(_, _ int, step domain.PlanStep, _ string) {
	p.skipped = append(p.skipped, step.Tool)
}

func step(tool string, ready bool) domain.PlanStep {
	s := domain.PlanStep{
		Tool:     tool,
		Language: domain.LanguagePython,
		Argv:     []string{tool, "scan"},
		Ready:    ready,
	}
	if !ready {
		s.Reason = tool + " not found on PATH"
	}
	return s
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newService(outcomes map[string]outcome, store ports.TelemetryStore) (*Service, *stubRunner) {
	runner := &stubRunner{outcomes: outcomes}
	return &Service{
		Runner: runner,
		Parser: stubParser{outcomes: outcomes},
		Store:  store,
		Logger: logger.Nop(),
		Now:    fixedClock(),
	}, runner
}

func clean() outcome {
	return outcome{result: ports.StepResult{ExitCode: 0}, parsed: true, severity: domain.SeverityNone}
}

func containsNote(notes []string, parts ...string) bool {
	for _, note := range notes {
		match := true
		for _, part := range parts {
			if !strings.Contains(note, part) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func tools(events []domain.TelemetryEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Tool)
	}
	return out
}

func TestRunSkipAccounting(t *testing.T) {
	store := telemetry.NewMemoryStore(10)
	svc, runner := newService(map[string]outcome{"a": clean(), "c": clean()}, store)
	progress := &recordingProgress{}
	svc.Progress = progress
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("a", true), step("b", false), step("c", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-skip", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, tools(run.Events))
	assert.Equal(t, []string{"a", "c"}, runner.calls)
	assert.True(t, containsNote(run.Notes, "Skipped b", "b not found on PATH"), "notes: %v", run.Notes)
	assert.Equal(t, []string{"b"}, progress.skipped)
	assert.Equal(t, []string{"a", "c"}, progress.started)
	assert.Equal(t, []string{"a", "c"}, progress.completed)
	for _, ev := range run.Events {
		require.NotNil(t, ev.ExitCode)
		assert.Equal(t, domain.StepExecuted, ev.Status)
	}

	stored, err := store.Latest("fp-skip")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, run.ID, stored.ID)
}

func TestRunCleanRunWithoutAnalyzers(t *testing.T) {
	svc, runner := newService(nil, telemetry.NewMemoryStore(10))
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("semgrep", false)}}

	run, err := svc.Run(context.Background(), plan, "fp-clean", Options{})
	require.NoError(t, err)

	assert.Empty(t, run.Events)
	assert.Empty(t, runner.calls)
	assert.Equal(t, domain.GatePass, run.Gate)
	assert.Equal(t, domain.ExitPass, run.Gate.ExitCode())
	assert.True(t, containsNote(run.Notes, "No analyzers were available"), "notes: %v", run.Notes)
}

func TestRunBlockingFinding(t *testing.T) {
	outcomes := map[string]outcome{"codeql": {result: ports.StepResult{ExitCode: 0}, parsed: true, severity: domain.SeverityCritical}}
	svc, _ := newService(outcomes, telemetry.NewMemoryStore(10))
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("codeql", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-block", Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.GateBlock, run.Gate)
	assert.Equal(t, domain.ExitBlock, run.Gate.ExitCode())
	assert.Equal(t, domain.SeverityCritical, run.EffectiveSeverity)
	assert.True(t, containsNote(run.Notes, "gate BLOCK", "codeql (python)", "critical"), "notes: %v", run.Notes)
}

func TestRunFilteredMediumStillRecorded(t *testing.T) {
	store := telemetry.NewMemoryStore(10)
	outcomes := map[string]outcome{"semgrep": {result: ports.StepResult{ExitCode: 1}, parsed: true, severity: domain.SeverityMedium}}
	svc, _ := newService(outcomes, store)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("semgrep", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-filter", Options{SeverityFilter: domain.SeverityHigh})
	require.NoError(t, err)

	assert.Equal(t, domain.GatePass, run.Gate)
	assert.True(t, containsNote(run.Notes, "semgrep (python)", "below severity filter high"), "notes: %v", run.Notes)

	stored, err := store.Latest("fp-filter")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Events, 1)
	assert.Equal(t, domain.SeverityMedium, stored.Events[0].Severity)
	assert.Equal(t, domain.SeverityHigh, stored.SeverityFilter)
}

func TestRunToolFilterSkipsAtRuntime(t *testing.T) {
	svc, runner := newService(map[string]outcome{"a": clean(), "b": clean()}, nil)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("a", true), step("b", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-tools", Options{ToolFilter: []string{"b"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, runner.calls)
	assert.True(t, containsNote(run.Notes, "Skipped a", "tool filter"), "notes: %v", run.Notes)
}

func TestRunIncludeUnreadyForcesExecution(t *testing.T) {
	svc, runner := newService(map[string]outcome{"b": clean()}, nil)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("b", false)}}

	run, err := svc.Run(context.Background(), plan, "fp-forced", Options{IncludeUnready: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, runner.calls)
	require.Len(t, run.Events, 1)
	assert.Equal(t, "true", run.Events[0].Metadata[domain.MetaForced])
	assert.True(t, containsNote(run.Notes, "Forced execution for b"), "notes: %v", run.Notes)
}

func TestRunLaunchFailureDoesNotAbort(t *testing.T) {
	outcomes := map[string]outcome{
		"gone":    {err: fmt.Errorf("%w: gone: executable file not found", domain.ErrStepLaunch)},
		"semgrep": {result: ports.StepResult{ExitCode: 0}, parsed: true, severity: domain.SeverityLow},
	}
	svc, runner := newService(outcomes, nil)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("gone", true), step("semgrep", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-launch", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"gone", "semgrep"}, runner.calls)
	require.Len(t, run.Events, 2)
	failed := run.Events[0]
	assert.Equal(t, domain.StepFailed, failed.Status)
	assert.Nil(t, failed.ExitCode)
	assert.Equal(t, domain.FailureLaunch, failed.Metadata[domain.MetaFailure])
	assert.True(t, containsNote(run.Notes, "Failed to launch gone"), "notes: %v", run.Notes)
	assert.Equal(t, domain.GateReview, run.Gate)
}

func TestRunFailurePolicies(t *testing.T) {
	outcomes := map[string]outcome{"gone": {err: fmt.Errorf("%w: gone", domain.ErrStepLaunch)}}
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("gone", true)}}

	cases := map[domain.FailurePolicy]domain.Gate{
		domain.FailureIgnore: domain.GatePass,
		domain.FailureReview: domain.GateReview,
		domain.FailureBlock:  domain.GateBlock,
	}
	for policy, want := range cases {
		t.Run(string(policy), func(t *testing.T) {
			svc, _ := newService(outcomes, nil)
			run, err := svc.Run(context.Background(), plan, "fp-policy", Options{FailurePolicy: policy})
			require.NoError(t, err)
			assert.Equal(t, want, run.Gate)
		})
	}
}

func TestRunTimeoutIsDistinguished(t *testing.T) {
	outcomes := map[string]outcome{"slow": {hook: func(ctx context.Context) error {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: slow", domain.ErrStepTimeout)
		}
		return ctx.Err()
	}}}
	svc, _ := newService(outcomes, nil)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("slow", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-timeout", Options{StepTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	require.Len(t, run.Events, 1)
	assert.Equal(t, domain.FailureTimeout, run.Events[0].Metadata[domain.MetaFailure])
	assert.True(t, containsNote(run.Notes, "slow (python) timed out"), "notes: %v", run.Notes)
	assert.Equal(t, domain.GateReview, run.Gate)
}

func TestRunSetupFailure(t *testing.T) {
	outcomes := map[string]outcome{"codeql": {result: ports.StepResult{ExitCode: 2, SetupExitCode: domain.IntPtr(2)}}}
	svc, _ := newService(outcomes, nil)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("codeql", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-setup", Options{})
	require.NoError(t, err)

	require.Len(t, run.Events, 1)
	ev := run.Events[0]
	assert.Equal(t, domain.StepFailed, ev.Status)
	assert.Equal(t, "2", ev.Metadata[domain.MetaSetupExit])
	assert.True(t, containsNote(run.Notes, "codeql (python) setup exited with code 2"), "notes: %v", run.Notes)
}

func TestRunExitSeverityFallback(t *testing.T) {
	outcomes := map[string]outcome{"linter": {result: ports.StepResult{ExitCode: 1}}}
	svc, _ := newService(outcomes, nil)
	s := step("linter", true)
	s.ExitSeverity = domain.SeverityMedium
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{s}}

	run, err := svc.Run(context.Background(), plan, "fp-exit", Options{})
	require.NoError(t, err)

	require.Len(t, run.Events, 1)
	assert.Equal(t, domain.SeverityMedium, run.Events[0].Severity)
	assert.Equal(t, domain.GateReview, run.Gate)
}

func TestRunSoftCancelStopsAtStepBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := telemetry.NewMemoryStore(10)
	outcomes := map[string]outcome{
		"a": {result: ports.StepResult{ExitCode: 0}, hook: func(stepCtx context.Context) error {
			cancel()
			// Soft cancel leaves the in-flight step running.
			return stepCtx.Err()
		}},
		"b": clean(),
	}
	svc, runner := newService(outcomes, store)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("a", true), step("b", true)}}

	run, err := svc.Run(ctx, plan, "fp-cancel", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, runner.calls)
	assert.True(t, run.Cancelled)
	require.Len(t, run.Events, 1)
	assert.Equal(t, domain.StepExecuted, run.Events[0].Status)
	assert.True(t, containsNote(run.Notes, "cancelled before b"), "notes: %v", run.Notes)
	assert.True(t, containsNote(run.Notes, "incomplete"), "notes: %v", run.Notes)

	stored, err := store.Latest("fp-cancel")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Cancelled)
}

func TestRunHardCancelInterruptsStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := map[string]outcome{
		"a": {hook: func(stepCtx context.Context) error {
			cancel()
			<-stepCtx.Done()
			return fmt.Errorf("a interrupted: %w", context.Canceled)
		}},
		"b": clean(),
	}
	svc, runner := newService(outcomes, nil)
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("a", true), step("b", true)}}

	run, err := svc.Run(ctx, plan, "fp-hard", Options{HardCancel: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, runner.calls)
	assert.True(t, run.Cancelled)
	require.Len(t, run.Events, 1)
	assert.Equal(t, domain.FailureCancel, run.Events[0].Metadata[domain.MetaFailure])
	assert.True(t, containsNote(run.Notes, "cancelled during a (python)"), "notes: %v", run.Notes)
}

func TestRunStoreFailureKeepsRun(t *testing.T) {
	outcomes := map[string]outcome{"a": clean()}
	svc, _ := newService(outcomes, failingStore{})
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("a", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-store", Options{})
	require.Error(t, err)

	var storeErr *domain.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "append", storeErr.Op)
	assert.NotEmpty(t, run.ID)
	assert.Len(t, run.Events, 1)
	assert.Equal(t, domain.GatePass, run.Gate)
}

func TestRunIDIsDerivedFromFingerprintAndStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, runID("fp", start), runID("fp", start))
	assert.NotEqual(t, runID("fp", start), runID("fp", start.Add(time.Nanosecond)))
	assert.NotEqual(t, runID("fp", start), runID("other", start))
}

func TestRunDurationsAreNonNegative(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 9, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	}
	i := 0
	svc, _ := newService(map[string]outcome{"a": clean()}, nil)
	svc.Now = func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}
	plan := domain.AnalysisPlan{Steps: []domain.PlanStep{step("a", true)}}

	run, err := svc.Run(context.Background(), plan, "fp-skew", Options{})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), run.Duration)
	require.Len(t, run.Events, 1)
	assert.Equal(t, time.Duration(0), run.Events[0].Duration)
}
