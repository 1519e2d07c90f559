package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

type stubConfig struct {
	cfg domain.Config
	err error
}

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

type stubProber struct {
	languages []domain.LanguageProfile
	tools     []domain.ToolAvailability
	err       error
}

func (s stubProber) Probe(context.Context, string) ([]domain.LanguageProfile, []domain.ToolAvailability, error) {
	return s.languages, s.tools, s.err
}

func testConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Analysis:            domain.AnalysisSettings{ReportsDir: ".emperator/reports"},
		Telemetry:           domain.TelemetrySettings{Store: domain.StoreFile, Dir: ".emperator/telemetry", MaxHistory: 20},
		Tools: []domain.ToolSpec{
			{ID: "semgrep", Binary: "semgrep", Guidance: "pip install semgrep"},
		},
	}
}

func findCheck(t *testing.T, report domain.HealthReport, name string) domain.HealthCheck {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not in report: %+v", name, report.Checks)
	return domain.HealthCheck{}
}

func TestDoctorReportsChecks(t *testing.T) {
	root := t.TempDir()
	prober := stubProber{
		languages: []domain.LanguageProfile{{Language: domain.LanguagePython, FileCount: 3}},
		tools: []domain.ToolAvailability{
			{Tool: "semgrep", Installed: false, Reason: "semgrep not found on PATH"},
			{Tool: "ruff", Installed: true, Version: "ruff 0.6.0", Location: "/usr/bin/ruff"},
		},
	}
	svc := &Service{
		ConfigProvider: stubConfig{cfg: testConfig()},
		NewProber:      func(domain.Config) ports.CapabilityProber { return prober },
		Root:           root,
	}

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Healthy() {
		t.Fatalf("expected healthy report: %+v", report.Checks)
	}
	if got := findCheck(t, report, "Telemetry store").Status; got != domain.HealthOK {
		t.Fatalf("telemetry status = %s", got)
	}
	if _, err := os.Stat(filepath.Join(root, ".emperator", "telemetry")); err != nil {
		t.Fatalf("telemetry dir not created: %v", err)
	}
	if got := findCheck(t, report, "Source census").Details; got != "python=3" {
		t.Fatalf("census details = %q", got)
	}
	missing := findCheck(t, report, "Tool semgrep")
	if missing.Status != domain.HealthWarn || missing.Details != "semgrep not found on PATH; pip install semgrep" {
		t.Fatalf("unexpected semgrep check: %+v", missing)
	}
	if got := findCheck(t, report, "Tool ruff"); got.Status != domain.HealthOK || got.Details != "ruff 0.6.0 (/usr/bin/ruff)" {
		t.Fatalf("unexpected ruff check: %+v", got)
	}
}

func TestDoctorConfigFailure(t *testing.T) {
	loadErr := errors.New("bad yaml")
	svc := &Service{ConfigProvider: stubConfig{err: loadErr}}

	report, err := svc.Run(context.Background())
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
	if report.Healthy() {
		t.Fatal("report should not be healthy")
	}
}

func TestDoctorUnwritableTelemetryDir(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Telemetry.Dir = filepath.Join(blocker, "telemetry")

	svc := &Service{ConfigProvider: stubConfig{cfg: cfg}, Root: root}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := findCheck(t, report, "Telemetry store").Status; got != domain.HealthError {
		t.Fatalf("telemetry status = %s", got)
	}
}

func TestDoctorProbeError(t *testing.T) {
	probeErr := &domain.ProbeError{Root: "/missing", Err: os.ErrNotExist}
	cfg := testConfig()
	cfg.Telemetry.Store = domain.StoreOff
	svc := &Service{
		ConfigProvider: stubConfig{cfg: cfg},
		NewProber:      func(domain.Config) ports.CapabilityProber { return stubProber{err: probeErr} },
		Root:           t.TempDir(),
	}

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := findCheck(t, report, "Source census").Status; got != domain.HealthError {
		t.Fatalf("census status = %s", got)
	}
	if got := findCheck(t, report, "Telemetry store").Status; got != domain.HealthWarn {
		t.Fatalf("telemetry status = %s", got)
	}
}
