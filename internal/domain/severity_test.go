package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/emperator-dev/emperator/internal/domain"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.Severity
		wantErr bool
	}{
		{raw: "", want: domain.SeverityNone},
		{raw: "none", want: domain.SeverityNone},
		{raw: "INFO", want: domain.SeverityInfo},
		{raw: " low ", want: domain.SeverityLow},
		{raw: "medium", want: domain.SeverityMedium},
		{raw: "high", want: domain.SeverityHigh},
		{raw: "critical", want: domain.SeverityCritical},
		{raw: "warning", want: domain.SeverityMedium},
		{raw: "error", want: domain.SeverityHigh},
		{raw: "note", want: domain.SeverityInfo},
		{raw: "catastrophic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := domain.ParseSeverity(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidSeverity) {
					t.Fatalf("expected ErrInvalidSeverity, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseSeverity(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	order := []domain.Severity{
		domain.SeverityNone,
		domain.SeverityInfo,
		domain.SeverityLow,
		domain.SeverityMedium,
		domain.SeverityHigh,
		domain.SeverityCritical,
	}
	for i := 1; i < len(order); i++ {
		if !(order[i-1] < order[i]) {
			t.Fatalf("%s should rank below %s", order[i-1], order[i])
		}
	}
}

func TestSeverityJSONUsesNames(t *testing.T) {
	payload, err := json.Marshal(struct {
		Level domain.Severity `json:"level"`
	}{Level: domain.SeverityHigh})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"level":"high"}` {
		t.Fatalf("unexpected payload %s", payload)
	}

	var decoded struct {
		Level domain.Severity `json:"level"`
	}
	if err := json.Unmarshal([]byte(`{"level":"critical"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Level != domain.SeverityCritical {
		t.Fatalf("decoded %s", decoded.Level)
	}
}
