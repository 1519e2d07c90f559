package domain

import (
	"fmt"
	"strings"
)

// Gate is the final pass/review/block verdict of a run.
type Gate string

const (
	GatePass   Gate = "PASS"
	GateReview Gate = "REVIEW"
	GateBlock  Gate = "BLOCK"
)

// ExitCode maps a gate to the process exit status.
func (g Gate) ExitCode() int {
	switch g {
	case GateReview:
		return ExitReview
	case GateBlock:
		return ExitBlock
	default:
		return ExitPass
	}
}

// GateForSeverity applies the fixed threshold table.
func GateForSeverity(s Severity) Gate {
	switch {
	case s >= SeverityHigh:
		return GateBlock
	case s == SeverityMedium:
		return GateReview
	default:
		return GatePass
	}
}

// FailurePolicy decides how failed steps (launch errors, timeouts) affect the gate.
type FailurePolicy string

const (
	FailureIgnore FailurePolicy = "ignore"
	FailureReview FailurePolicy = "review"
	FailureBlock  FailurePolicy = "block"
)

// ParseFailurePolicy validates a policy name, defaulting to review.
func ParseFailurePolicy(raw string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return FailureReview, nil
	case FailureIgnore, FailureReview, FailureBlock:
		return p, nil
	default:
		return "", fmt.Errorf("%w: failure policy %q must be ignore|review|block", ErrInvalidConfig, raw)
	}
}

// GateDecision is the outcome of EvaluateGate.
type GateDecision struct {
	Gate      Gate
	Effective Severity
	Notes     []string
}

// EvaluateGate folds executed and failed events into a verdict.
//
// Events whose severity falls below filter stay in the log but do not count;
// each one gets a note. Failed events escalate according to policy. Every
// REVIEW or BLOCK verdict carries at least one note naming the step that
// caused it.
func EvaluateGate(events []TelemetryEvent, filter Severity, policy FailurePolicy) GateDecision {
	var (
		decision  = GateDecision{Gate: GatePass}
		culprits  []string
		failures  []string
		effective = SeverityNone
	)

	for _, ev := range events {
		label := ev.Label()
		if ev.Status == StepFailed {
			failures = append(failures, label)
			continue
		}
		if ev.Severity > SeverityNone && ev.Severity < filter {
			decision.Notes = append(decision.Notes, fmt.Sprintf(
				"%s reported %s, below severity filter %s; excluded from gating", label, ev.Severity, filter))
			continue
		}
		if ev.Severity > effective {
			effective = ev.Severity
			culprits = culprits[:0]
		}
		if ev.Severity == effective && effective > SeverityNone {
			culprits = append(culprits, label)
		}
	}

	decision.Effective = effective
	decision.Gate = GateForSeverity(effective)
	if decision.Gate != GatePass {
		decision.Notes = append(decision.Notes, fmt.Sprintf(
			"gate %s: %s reported %s", decision.Gate, strings.Join(culprits, ", "), effective))
	}

	if len(failures) > 0 {
		escalated := decision.Gate
		switch policy {
		case FailureBlock:
			escalated = GateBlock
		case FailureReview, "":
			if escalated == GatePass {
				escalated = GateReview
			}
		}
		if escalated != decision.Gate {
			decision.Gate = escalated
			decision.Notes = append(decision.Notes, fmt.Sprintf(
				"gate %s: %s failed to complete (failure policy %s)", escalated, strings.Join(failures, ", "), orDefault(string(policy), string(FailureReview))))
		} else {
			decision.Notes = append(decision.Notes, fmt.Sprintf(
				"%s failed to complete; gate unchanged under failure policy %s", strings.Join(failures, ", "), orDefault(string(policy), string(FailureReview))))
		}
	}
	return decision
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
