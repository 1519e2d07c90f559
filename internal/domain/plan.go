package domain

import "fmt"

// PlanStep is one concrete analyzer invocation.
type PlanStep struct {
	Tool         string       `json:"tool" yaml:"tool"`
	Language     Language     `json:"language" yaml:"language"`
	Argv         []string     `json:"argv" yaml:"argv"`
	Setup        [][]string   `json:"setup,omitempty" yaml:"setup,omitempty"`
	Rationale    string       `json:"rationale" yaml:"rationale"`
	Ready        bool         `json:"ready" yaml:"ready"`
	Reason       string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Files        int          `json:"files" yaml:"files"`
	Report       ReportFormat `json:"report,omitempty" yaml:"report,omitempty"`
	ReportPath   string       `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	ExitSeverity Severity     `json:"exit_severity,omitempty" yaml:"exit_severity,omitempty"`
}

// Label names the step in notes and progress output.
func (s PlanStep) Label() string {
	return stepLabel(s.Tool, s.Language)
}

// HintLevel classifies an AnalysisHint.
type HintLevel string

const (
	HintInfo    HintLevel = "info"
	HintWarning HintLevel = "warning"
)

// AnalysisHint is advisory output shown by inspect and plan.
type AnalysisHint struct {
	Level   HintLevel `json:"level" yaml:"level"`
	Topic   string    `json:"topic" yaml:"topic"`
	Message string    `json:"message" yaml:"message"`
}

// AnalysisPlan is the fingerprinted unit: steps plus the snapshots used to build them.
type AnalysisPlan struct {
	Root      string             `json:"root" yaml:"root"`
	Languages []LanguageProfile  `json:"languages" yaml:"languages"`
	Tools     []ToolAvailability `json:"tools" yaml:"tools"`
	Steps     []PlanStep         `json:"steps" yaml:"steps"`
	Hints     []AnalysisHint     `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// ReadySteps counts steps that can run.
func (p AnalysisPlan) ReadySteps() int {
	n := 0
	for _, step := range p.Steps {
		if step.Ready {
			n++
		}
	}
	return n
}

func stepLabel(tool string, lang Language) string {
	if lang == "" {
		return tool
	}
	return fmt.Sprintf("%s (%s)", tool, lang)
}
