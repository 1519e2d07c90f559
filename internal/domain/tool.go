package domain

// ReportFormat tells the report parser where findings come from.
type ReportFormat string

const (
	ReportNone         ReportFormat = "none"
	ReportSARIFFile    ReportFormat = "sarif-file"
	ReportSARIFStdout  ReportFormat = "sarif-stdout"
	ReportESLintStdout ReportFormat = "eslint-stdout"
)

// ToolSpec describes how an analyzer is probed and invoked.
//
// Args and Setup are templates. Supported placeholders: {root}, {lang},
// {report}, {db}. An argument equal to {includes} expands to one argument
// per extension of the step's language, built from IncludePattern with
// {ext} substituted.
type ToolSpec struct {
	ID             string              `yaml:"id" json:"id" validate:"required"`
	Binary         string              `yaml:"binary" json:"binary" validate:"required"`
	VersionArgs    []string            `yaml:"version_args,omitempty" json:"version_args,omitempty"`
	Languages      []Language          `yaml:"languages,omitempty" json:"languages,omitempty"`
	Aliases        map[Language]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Args           []string            `yaml:"args,omitempty" json:"args,omitempty"`
	Setup          [][]string          `yaml:"setup,omitempty" json:"setup,omitempty"`
	IncludePattern string              `yaml:"include_pattern,omitempty" json:"include_pattern,omitempty"`
	Report         ReportFormat        `yaml:"report,omitempty" json:"report,omitempty" validate:"omitempty,oneof=none sarif-file sarif-stdout eslint-stdout"`
	ExitSeverity   Severity            `yaml:"exit_severity,omitempty" json:"exit_severity,omitempty"`
	Rationale      string              `yaml:"rationale,omitempty" json:"rationale,omitempty"`
	Guidance       string              `yaml:"guidance,omitempty" json:"guidance,omitempty"`
}

// StepKey groups languages that share one invocation (e.g. CodeQL runs
// typescript under the javascript extractor).
func (t ToolSpec) StepKey(lang Language) string {
	if alias, ok := t.Aliases[lang]; ok && alias != "" {
		return alias
	}
	return string(lang)
}

// Supports reports whether the tool claims lang.
func (t ToolSpec) Supports(lang Language) bool {
	for _, candidate := range t.Languages {
		if candidate == lang {
			return true
		}
	}
	return false
}

// ToolAvailability is the probe result for one tool.
type ToolAvailability struct {
	Tool      string `json:"tool" yaml:"tool"`
	Installed bool   `json:"installed" yaml:"installed"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
