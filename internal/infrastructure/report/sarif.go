package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/emperator-dev/emperator/internal/domain"
)

type sarifLog struct {
	Runs []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver struct {
		Rules []sarifRule `json:"rules"`
	} `json:"driver"`
}

type sarifRule struct {
	ID                   string         `json:"id"`
	DefaultConfiguration *sarifConfig   `json:"defaultConfiguration,omitempty"`
	Properties           map[string]any `json:"properties,omitempty"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string         `json:"ruleId"`
	RuleIndex  *int           `json:"ruleIndex,omitempty"`
	Level      string         `json:"level"`
	Properties map[string]any `json:"properties,omitempty"`
}

// parseSARIF returns the highest severity across all results and the result count.
func parseSARIF(data []byte) (domain.Severity, int, error) {
	var doc sarifLog
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.SeverityNone, 0, fmt.Errorf("parsing sarif: %w", err)
	}
	highest := domain.SeverityNone
	count := 0
	for _, run := range doc.Runs {
		rules := make(map[string]sarifRule, len(run.Tool.Driver.Rules))
		for _, rule := range run.Tool.Driver.Rules {
			rules[rule.ID] = rule
		}
		for _, result := range run.Results {
			rule, ok := rules[result.RuleID]
			if !ok && result.RuleIndex != nil && *result.RuleIndex >= 0 && *result.RuleIndex < len(run.Tool.Driver.Rules) {
				rule = run.Tool.Driver.Rules[*result.RuleIndex]
			}
			count++
			highest = domain.MaxSeverity(highest, resultSeverity(result, rule))
		}
	}
	return highest, count, nil
}

// resultSeverity prefers a CVSS-style security-severity, then a textual
// problem severity, then the SARIF level. SARIF defaults a missing level to
// warning.
func resultSeverity(result sarifResult, rule sarifRule) domain.Severity {
	for _, props := range []map[string]any{result.Properties, rule.Properties} {
		if score, ok := securitySeverity(props); ok {
			return cvssBand(score)
		}
	}
	for _, props := range []map[string]any{result.Properties, rule.Properties} {
		if sev, ok := problemSeverity(props); ok {
			return sev
		}
	}
	level := result.Level
	if level == "" && rule.DefaultConfiguration != nil {
		level = rule.DefaultConfiguration.Level
	}
	return levelSeverity(level)
}

func securitySeverity(props map[string]any) (float64, bool) {
	raw, ok := props["security-severity"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func cvssBand(score float64) domain.Severity {
	switch {
	case score >= 9.0:
		return domain.SeverityCritical
	case score >= 7.0:
		return domain.SeverityHigh
	case score >= 4.0:
		return domain.SeverityMedium
	case score > 0:
		return domain.SeverityLow
	default:
		return domain.SeverityNone
	}
}

func problemSeverity(props map[string]any) (domain.Severity, bool) {
	for _, key := range []string{"problem.severity", "severity"} {
		raw, ok := props[key].(string)
		if !ok {
			continue
		}
		switch strings.ToLower(raw) {
		case "recommendation":
			return domain.SeverityLow, true
		default:
			if sev, err := domain.ParseSeverity(raw); err == nil && sev != domain.SeverityNone {
				return sev, true
			}
		}
	}
	return domain.SeverityNone, false
}

func levelSeverity(level string) domain.Severity {
	switch strings.ToLower(level) {
	case "error":
		return domain.SeverityHigh
	case "", "warning":
		return domain.SeverityMedium
	case "note":
		return domain.SeverityLow
	default:
		return domain.SeverityNone
	}
}
