package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

// Service runs environment diagnostics for one analysis root.
type Service struct {
	ConfigProvider ports.ConfigProvider
	// NewProber builds a prober from the loaded configuration.
	NewProber func(domain.Config) ports.CapabilityProber
	Root      string
}

// Run executes checks and returns a report. The error is non-nil only when
// the configuration cannot be loaded; every other problem is a check.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded format %s", cfg.ConfigFormatVersion)))
	checks = append(checks, telemetryCheck(cfg, s.Root))
	checks = append(checks, dirCheck("Reports dir", cfg.ReportsDirFor(s.Root)))

	if s.NewProber == nil {
		checks = append(checks, warn("Analyzers", "prober not initialized"))
		return domain.HealthReport{Checks: checks}, nil
	}
	languages, tools, err := s.NewProber(cfg).Probe(ctx, s.Root)
	if err != nil {
		checks = append(checks, fail("Source census", err.Error()))
	} else {
		checks = append(checks, censusCheck(languages))
	}
	for _, tool := range tools {
		checks = append(checks, toolCheck(cfg, tool))
	}
	return domain.HealthReport{Checks: checks}, nil
}

func telemetryCheck(cfg domain.Config, root string) domain.HealthCheck {
	const name = "Telemetry store"
	switch cfg.Telemetry.Store {
	case domain.StoreOff:
		return warn(name, "disabled; runs are not recorded")
	case domain.StoreMemory:
		return warn(name, "memory; history does not survive the process")
	}
	dir := cfg.TelemetryDirFor(root)
	if err := probeWritable(dir); err != nil {
		return fail(name, fmt.Sprintf("%s store at %s is not writable: %v", cfg.Telemetry.Store, dir, err))
	}
	return ok(name, fmt.Sprintf("%s store at %s (max %d runs per fingerprint)", cfg.Telemetry.Store, dir, cfg.Telemetry.MaxHistory))
}

func dirCheck(name, dir string) domain.HealthCheck {
	if err := probeWritable(dir); err != nil {
		return fail(name, fmt.Sprintf("%s is not writable: %v", dir, err))
	}
	return ok(name, dir)
}

// probeWritable creates dir if needed and writes a scratch file into it.
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	closeErr := f.Close()
	if err := os.Remove(name); err != nil {
		return err
	}
	return closeErr
}

func censusCheck(languages []domain.LanguageProfile) domain.HealthCheck {
	if len(languages) == 0 {
		return warn("Source census", "no supported source files found")
	}
	parts := make([]string, 0, len(languages))
	for _, lang := range languages {
		parts = append(parts, fmt.Sprintf("%s=%d", lang.Language, lang.FileCount))
	}
	return ok("Source census", strings.Join(parts, ", "))
}

func toolCheck(cfg domain.Config, avail domain.ToolAvailability) domain.HealthCheck {
	name := "Tool " + avail.Tool
	if !avail.Installed {
		details := avail.Reason
		if spec, found := cfg.ToolByID(avail.Tool); found && spec.Guidance != "" {
			details += "; " + spec.Guidance
		}
		return warn(name, details)
	}
	details := avail.Version
	if avail.Location != "" {
		details = fmt.Sprintf("%s (%s)", strings.TrimSpace(details), filepath.Clean(avail.Location))
	}
	return ok(name, strings.TrimSpace(details))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
