package domain_test

import (
	"strings"
	"testing"

	"github.com/emperator-dev/emperator/internal/domain"
)

func executed(tool string, sev domain.Severity) domain.TelemetryEvent {
	return domain.TelemetryEvent{Tool: tool, Language: domain.LanguagePython, Status: domain.StepExecuted, Severity: sev, ExitCode: domain.IntPtr(0)}
}

func failed(tool string) domain.TelemetryEvent {
	return domain.TelemetryEvent{Tool: tool, Language: domain.LanguageGo, Status: domain.StepFailed}
}

func TestGateForSeverity(t *testing.T) {
	tests := map[domain.Severity]domain.Gate{
		domain.SeverityNone:     domain.GatePass,
		domain.SeverityInfo:     domain.GatePass,
		domain.SeverityLow:      domain.GatePass,
		domain.SeverityMedium:   domain.GateReview,
		domain.SeverityHigh:     domain.GateBlock,
		domain.SeverityCritical: domain.GateBlock,
	}
	for sev, want := range tests {
		if got := domain.GateForSeverity(sev); got != want {
			t.Fatalf("GateForSeverity(%s) = %s, want %s", sev, got, want)
		}
	}
}

func TestGateExitCodes(t *testing.T) {
	if domain.GatePass.ExitCode() != 0 {
		t.Fatalf("PASS must exit 0")
	}
	codes := map[int]bool{
		domain.GateReview.ExitCode(): true,
		domain.GateBlock.ExitCode():  true,
		domain.ExitFatal:             true,
	}
	if len(codes) != 3 {
		t.Fatalf("REVIEW, BLOCK and fatal exit codes must be distinct: %v", codes)
	}
}

func TestEvaluateGate(t *testing.T) {
	tests := []struct {
		name      string
		events    []domain.TelemetryEvent
		filter    domain.Severity
		policy    domain.FailurePolicy
		want      domain.Gate
		effective domain.Severity
		noteHas   []string
	}{
		{
			name: "no events pass",
			want: domain.GatePass,
		},
		{
			name:      "critical blocks with attribution",
			events:    []domain.TelemetryEvent{executed("semgrep", domain.SeverityLow), executed("codeql", domain.SeverityCritical)},
			want:      domain.GateBlock,
			effective: domain.SeverityCritical,
			noteHas:   []string{"codeql (python)", "critical"},
		},
		{
			name:      "medium reviews",
			events:    []domain.TelemetryEvent{executed("ruff", domain.SeverityMedium)},
			want:      domain.GateReview,
			effective: domain.SeverityMedium,
			noteHas:   []string{"gate REVIEW", "ruff (python) reported medium"},
		},
		{
			name:    "filtered medium passes",
			events:  []domain.TelemetryEvent{executed("semgrep", domain.SeverityMedium)},
			filter:  domain.SeverityHigh,
			want:    domain.GatePass,
			noteHas: []string{"below severity filter high"},
		},
		{
			name:      "failure lifts pass to review by default",
			events:    []domain.TelemetryEvent{executed("semgrep", domain.SeverityLow), failed("golangci-lint")},
			want:      domain.GateReview,
			effective: domain.SeverityLow,
			noteHas:   []string{"golangci-lint (go) failed"},
		},
		{
			name:   "failure ignored",
			events: []domain.TelemetryEvent{failed("golangci-lint")},
			policy: domain.FailureIgnore,
			want:   domain.GatePass,
		},
		{
			name:    "failure blocks when opted in",
			events:  []domain.TelemetryEvent{failed("golangci-lint")},
			policy:  domain.FailureBlock,
			want:    domain.GateBlock,
			noteHas: []string{"gate BLOCK", "failure policy block"},
		},
		{
			name:      "review policy never lowers block",
			events:    []domain.TelemetryEvent{executed("semgrep", domain.SeverityHigh), failed("codeql")},
			policy:    domain.FailureReview,
			want:      domain.GateBlock,
			effective: domain.SeverityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.EvaluateGate(tt.events, tt.filter, tt.policy)
			if got.Gate != tt.want {
				t.Fatalf("gate = %s, want %s (notes %v)", got.Gate, tt.want, got.Notes)
			}
			if got.Effective != tt.effective {
				t.Fatalf("effective = %s, want %s", got.Effective, tt.effective)
			}
			if got.Gate != domain.GatePass && len(got.Notes) == 0 {
				t.Fatalf("%s verdict without attribution", got.Gate)
			}
			joined := strings.Join(got.Notes, "\n")
			for _, fragment := range tt.noteHas {
				if !strings.Contains(joined, fragment) {
					t.Fatalf("notes %q missing %q", joined, fragment)
				}
			}

			again := domain.EvaluateGate(tt.events, tt.filter, tt.policy)
			if again.Gate != got.Gate || again.Effective != got.Effective {
				t.Fatalf("gate is not deterministic: %v vs %v", got, again)
			}
		})
	}
}
