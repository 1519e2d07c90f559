package report

import (
	"encoding/json"
	"fmt"

	"github.com/emperator-dev/emperator/internal/domain"
)

type eslintFile struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"` // 1 = warning, 2 = error
	Fatal    bool   `json:"fatal"`
}

func parseESLint(data []byte) (domain.Severity, int, error) {
	var files []eslintFile
	if err := json.Unmarshal(data, &files); err != nil {
		return domain.SeverityNone, 0, fmt.Errorf("parsing eslint output: %w", err)
	}
	highest := domain.SeverityNone
	count := 0
	for _, file := range files {
		for _, msg := range file.Messages {
			count++
			highest = domain.MaxSeverity(highest, mapESLintSeverity(msg))
		}
	}
	return highest, count, nil
}

func mapESLintSeverity(msg eslintMessage) domain.Severity {
	switch {
	case msg.Fatal, msg.Severity >= 2:
		return domain.SeverityMedium
	case msg.Severity == 1:
		return domain.SeverityLow
	default:
		return domain.SeverityInfo
	}
}
