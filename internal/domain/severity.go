package domain

import (
	"fmt"
	"strings"
)

// Severity is the ordered finding level reported by analyzers.
// The zero value is SeverityNone.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"none", "info", "low", "medium", "high", "critical"}

// String returns the lowercase wire name.
func (s Severity) String() string {
	if s < SeverityNone || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity maps a case-insensitive name to a Severity.
// The empty string parses as SeverityNone.
func ParseSeverity(raw string) (Severity, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return SeverityNone, nil
	}
	for i, candidate := range severityNames {
		if candidate == name {
			return Severity(i), nil
		}
	}
	// Aliases seen in SARIF and linter output.
	switch name {
	case "note":
		return SeverityInfo, nil
	case "warning", "moderate":
		return SeverityMedium, nil
	case "error":
		return SeverityHigh, nil
	}
	return SeverityNone, fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
}

// MaxSeverity returns the higher of the two.
func MaxSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
