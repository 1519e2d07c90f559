package run

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/emperator-dev/emperator/internal/domain"
)

var (
	tracer = otel.Tracer("emperator.run")
	meter  = otel.Meter("emperator.run")
)

var (
	stepDuration metric.Float64Histogram
	stepTotal    metric.Int64Counter
	runTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		stepDuration, err = meter.Float64Histogram(
			"emperator_step_duration_seconds",
			metric.WithDescription("Wall time of analyzer steps"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stepTotal, err = meter.Int64Counter(
			"emperator_steps_total",
			metric.WithDescription("Analyzer steps attempted, by tool and status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"emperator_runs_total",
			metric.WithDescription("Completed runs, by gate"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, fingerprint string, steps int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Orchestrator.Run",
		trace.WithAttributes(
			attribute.String("emperator.fingerprint", fingerprint),
			attribute.Int("emperator.plan.steps", steps),
		),
	)
}

func setRunSpanResult(span trace.Span, run domain.TelemetryRun) {
	span.SetAttributes(
		attribute.String("emperator.run.id", run.ID),
		attribute.String("emperator.run.gate", string(run.Gate)),
		attribute.String("emperator.run.effective_severity", run.EffectiveSeverity.String()),
		attribute.Int("emperator.run.events", len(run.Events)),
		attribute.Bool("emperator.run.cancelled", run.Cancelled),
	)
}

func startStepSpan(ctx context.Context, step domain.PlanStep) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Orchestrator.Step",
		trace.WithAttributes(
			attribute.String("emperator.step.tool", step.Tool),
			attribute.String("emperator.step.language", string(step.Language)),
		),
	)
}

// finishStep annotates the span and records step metrics.
func finishStep(ctx context.Context, span trace.Span, event domain.TelemetryEvent) {
	span.SetAttributes(
		attribute.String("emperator.step.status", string(event.Status)),
		attribute.String("emperator.step.severity", event.Severity.String()),
	)
	if event.ExitCode != nil {
		span.SetAttributes(attribute.Int("emperator.step.exit_code", *event.ExitCode))
	}
	if event.Status == domain.StepFailed {
		span.SetStatus(codes.Error, event.Metadata[domain.MetaFailure])
	}

	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", event.Tool),
		attribute.String("status", string(event.Status)),
	)
	stepDuration.Record(ctx, event.Duration.Seconds(), attrs)
	stepTotal.Add(ctx, 1, attrs)
}

func recordRunMetrics(ctx context.Context, run domain.TelemetryRun) {
	if err := initMetrics(); err != nil {
		return
	}
	runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gate", string(run.Gate)),
		attribute.Bool("cancelled", run.Cancelled),
	))
}
