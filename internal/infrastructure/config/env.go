package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emperator-dev/emperator/internal/domain"
)

// Environment variables read by the loader.
const (
	EnvConfig         = "EMPERATOR_CONFIG"
	EnvTelemetryDir   = "EMPERATOR_TELEMETRY_DIR"
	EnvStepTimeout    = "EMPERATOR_STEP_TIMEOUT"
	EnvProbeTimeout   = "EMPERATOR_PROBE_TIMEOUT"
	EnvSkipDirs       = "EMPERATOR_SKIP_DIRS"
	EnvMaxHistory     = "EMPERATOR_MAX_HISTORY"
	EnvStore          = "EMPERATOR_STORE"
	EnvSeverityFilter = "EMPERATOR_SEVERITY_FILTER"
	EnvFailurePolicy  = "EMPERATOR_FAILURE_POLICY"
	EnvOTelExporter   = "EMPERATOR_OTEL_EXPORTER"
)

func applyEnv(cfg *domain.Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(EnvTelemetryDir, &cfg.Telemetry.Dir)
	setString(EnvStepTimeout, &cfg.Analysis.StepTimeout)
	setString(EnvProbeTimeout, &cfg.Analysis.ProbeTimeout)
	setString(EnvStore, &cfg.Telemetry.Store)
	setString(EnvSeverityFilter, &cfg.Gate.SeverityFilter)
	setString(EnvFailurePolicy, &cfg.Gate.FailurePolicy)
	setString(EnvOTelExporter, &cfg.OTel.Exporter)

	if raw := strings.TrimSpace(getenv(EnvSkipDirs)); raw != "" {
		var dirs []string
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Analysis.SkipDirs = dirs
	}
	if raw := strings.TrimSpace(getenv(EnvMaxHistory)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, EnvMaxHistory, raw)
		}
		cfg.Telemetry.MaxHistory = n
	}
	return nil
}
