package domain

import (
	"path/filepath"
	"time"
)

// ToolByID looks up a configured tool.
func (c *Config) ToolByID(id string) (ToolSpec, bool) {
	for _, tool := range c.Tools {
		if tool.ID == id {
			return tool, true
		}
	}
	return ToolSpec{}, false
}

// ToolIDs lists configured tools in registry order.
func (c *Config) ToolIDs() []string {
	ids := make([]string, 0, len(c.Tools))
	for _, tool := range c.Tools {
		ids = append(ids, tool.ID)
	}
	return ids
}

// ProbeTimeoutDuration falls back to DefaultProbeTimeout on unparsable input.
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return parseDurationOr(c.Analysis.ProbeTimeout, DefaultProbeTimeout)
}

// StepTimeoutDuration falls back to DefaultStepTimeout on unparsable input.
func (c *Config) StepTimeoutDuration() time.Duration {
	return parseDurationOr(c.Analysis.StepTimeout, DefaultStepTimeout)
}

// SeverityFilterLevel returns the configured gate filter.
func (c *Config) SeverityFilterLevel() Severity {
	level, err := ParseSeverity(c.Gate.SeverityFilter)
	if err != nil {
		return SeverityNone
	}
	return level
}

// FailurePolicyValue returns the configured failure policy.
func (c *Config) FailurePolicyValue() FailurePolicy {
	policy, err := ParseFailurePolicy(c.Gate.FailurePolicy)
	if err != nil {
		return FailureReview
	}
	return policy
}

// TelemetryDirFor resolves the storage root against the analysed root.
func (c *Config) TelemetryDirFor(root string) string {
	return resolveUnder(root, c.Telemetry.Dir, DefaultTelemetryDir)
}

// ReportsDirFor resolves where SARIF reports are written.
func (c *Config) ReportsDirFor(root string) string {
	return resolveUnder(root, c.Analysis.ReportsDir, DefaultReportsDir)
}

// CodeQLDBDirFor resolves where CodeQL databases are created.
func (c *Config) CodeQLDBDirFor(root string) string {
	return resolveUnder(root, c.Analysis.CodeQLDBDir, DefaultCodeQLDBDir)
}

func resolveUnder(root, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
