package plan

import (
	"fmt"

	"github.com/emperator-dev/emperator/internal/domain"
)

func buildHints(tools []domain.ToolSpec, wanted map[string]bool, plan domain.AnalysisPlan) []domain.AnalysisHint {
	var hints []domain.AnalysisHint
	if len(plan.Languages) == 0 {
		return append(hints, domain.AnalysisHint{
			Level:   domain.HintWarning,
			Topic:   "languages",
			Message: "No supported source files were detected under the project root.",
		})
	}

	for _, profile := range plan.Languages {
		hints = append(hints, domain.AnalysisHint{
			Level:   domain.HintInfo,
			Topic:   string(profile.Language),
			Message: fmt.Sprintf("Detected %d %s file(s).", profile.FileCount, profile.Language),
		})
	}

	installed := map[string]bool{}
	for _, a := range plan.Tools {
		installed[a.Tool] = a.Installed
	}
	stepsByTool := map[string]int{}
	for _, step := range plan.Steps {
		stepsByTool[step.Tool]++
	}
	for _, tool := range tools {
		if len(wanted) > 0 && !wanted[tool.ID] {
			continue
		}
		if stepsByTool[tool.ID] == 0 || installed[tool.ID] {
			continue
		}
		msg := fmt.Sprintf("%s would analyse %d step(s) but is not installed.", tool.ID, stepsByTool[tool.ID])
		if tool.Guidance != "" {
			msg += " " + tool.Guidance
		}
		hints = append(hints, domain.AnalysisHint{Level: domain.HintWarning, Topic: tool.ID, Message: msg})
	}

	if plan.ReadySteps() == 0 {
		hints = append(hints, domain.AnalysisHint{
			Level:   domain.HintWarning,
			Topic:   "analyzers",
			Message: "No analyzers are ready for the detected languages.",
		})
	}
	return hints
}
