package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/emperator-dev/emperator/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		Analysis: domain.AnalysisSettings{
			SampleLimit:  5,
			ProbeTimeout: "3s",
			StepTimeout:  "10m",
			ReportsDir:   ".emperator/reports",
			CodeQLDBDir:  ".emperator/codeql-db",
		},
		Telemetry: domain.TelemetrySettings{Store: "file", Dir: ".emperator/telemetry", MaxHistory: 20},
		Gate:      domain.GateSettings{FailurePolicy: "review", SeverityFilter: "none"},
		OTel:      domain.OTelSettings{Exporter: "none"},
		Tools: []domain.ToolSpec{
			{ID: "ruff", Binary: "ruff", Languages: []domain.Language{domain.LanguagePython}, Args: []string{"check"}, Report: domain.ReportSARIFFile},
			{ID: "tree-sitter", Binary: "tree-sitter"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantMsg string
	}{
		{name: "valid", mutate: func(*domain.Config) {}},
		{name: "bad store", mutate: func(c *domain.Config) { c.Telemetry.Store = "s3" }, wantMsg: "telemetry.store must be one of memory|file|sqlite|off"},
		{name: "retention too large", mutate: func(c *domain.Config) { c.Telemetry.MaxHistory = 5000 }, wantMsg: "telemetry.max_history must be <= 1000"},
		{name: "retention zero", mutate: func(c *domain.Config) { c.Telemetry.MaxHistory = 0 }, wantMsg: "telemetry.max_history must be >= 1"},
		{name: "bad timeout", mutate: func(c *domain.Config) { c.Analysis.StepTimeout = "forever" }, wantMsg: "analysis.step_timeout must be a positive duration"},
		{name: "bad policy", mutate: func(c *domain.Config) { c.Gate.FailurePolicy = "panic" }, wantMsg: "gate.failure_policy"},
		{name: "bad severity", mutate: func(c *domain.Config) { c.Gate.SeverityFilter = "loud" }, wantMsg: "gate.severity_filter"},
		{name: "bad exporter", mutate: func(c *domain.Config) { c.OTel.Exporter = "jaeger" }, wantMsg: "otel.exporter"},
		{name: "tool without binary", mutate: func(c *domain.Config) { c.Tools[0].Binary = "" }, wantMsg: "tools[0].binary must be set"},
		{name: "duplicate tool", mutate: func(c *domain.Config) { c.Tools[1].ID = "ruff" }, wantMsg: "defined twice"},
		{name: "unknown language", mutate: func(c *domain.Config) { c.Tools[0].Languages = []domain.Language{"cobol"} }, wantMsg: "unknown language"},
		{name: "bad report", mutate: func(c *domain.Config) { c.Tools[0].Report = "xml" }, wantMsg: "tools[0].report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}
