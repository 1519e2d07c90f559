package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/emperator-dev/emperator/internal/domain"
)

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("duration", validateDuration)
	_ = configValidate.RegisterValidation("severity", validateSeverity)
}

func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

func validateSeverity(fl validator.FieldLevel) bool {
	_, err := domain.ParseSeverity(fl.Field().String())
	return err == nil
}

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := configValidate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return validateTools(cfg.Tools)
}

func validateTools(tools []domain.ToolSpec) error {
	seen := map[string]bool{}
	for _, tool := range tools {
		if seen[tool.ID] {
			return fmt.Errorf("%w: tool %s is defined twice", domain.ErrInvalidConfig, tool.ID)
		}
		seen[tool.ID] = true
		for _, lang := range tool.Languages {
			if len(domain.Extensions(lang)) == 0 {
				return fmt.Errorf("%w: tool %s lists unknown language %q", domain.ErrInvalidConfig, tool.ID, lang)
			}
		}
		if len(tool.Languages) > 0 && len(tool.Args) == 0 {
			return fmt.Errorf("%w: tool %s declares languages but no args", domain.ErrInvalidConfig, tool.ID)
		}
	}
	return nil
}

// describe turns a validator failure into a yaml-path message.
func describe(fe validator.FieldError) string {
	field := yamlPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must be set", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", field, strings.ReplaceAll(fe.Param(), " ", "|"), fe.Value())
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as 30s or 10m, got %q", field, fe.Value())
	case "severity":
		return fmt.Sprintf("%s must be none|info|low|medium|high|critical, got %q", field, fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, map[string]string{"gte": ">=", "lte": "<="}[fe.Tag()], fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

var fieldNames = map[string]string{
	"Analysis":       "analysis",
	"SkipDirs":       "skip_dirs",
	"SampleLimit":    "sample_limit",
	"ProbeTimeout":   "probe_timeout",
	"StepTimeout":    "step_timeout",
	"ReportsDir":     "reports_dir",
	"CodeQLDBDir":    "codeql_db_dir",
	"Telemetry":      "telemetry",
	"Store":          "store",
	"Dir":            "dir",
	"MaxHistory":     "max_history",
	"Gate":           "gate",
	"FailurePolicy":  "failure_policy",
	"SeverityFilter": "severity_filter",
	"OTel":           "otel",
	"Exporter":       "exporter",
	"Tools":          "tools",
	"ID":             "id",
	"Binary":         "binary",
	"Report":         "report",
}

func yamlPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, part := range parts {
		name, index, _ := strings.Cut(part, "[")
		if mapped, ok := fieldNames[name]; ok {
			name = mapped
		}
		if index != "" {
			name += "[" + index
		}
		parts[i] = name
	}
	return strings.Join(parts, ".")
}
