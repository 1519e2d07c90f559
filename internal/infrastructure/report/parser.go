// Package report extracts finding severities from analyzer output.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

// Parser implements ports.ReportParser for SARIF and ESLint JSON.
type Parser struct {
	readFile func(string) ([]byte, error)
}

// NewParser returns a Parser reading reports from disk.
func NewParser() *Parser {
	return &Parser{readFile: os.ReadFile}
}

// Parse reads the step's report. A missing or empty report yields
// Findings{Parsed: false} with no error; malformed content is an error.
func (p *Parser) Parse(step domain.PlanStep, stdout []byte) (ports.Findings, error) {
	var (
		data   []byte
		source string
	)
	switch step.Report {
	case domain.ReportSARIFFile:
		raw, err := p.readFile(step.ReportPath)
		if errors.Is(err, fs.ErrNotExist) {
			return ports.Findings{}, nil
		}
		if err != nil {
			return ports.Findings{}, fmt.Errorf("reading report %s: %w", step.ReportPath, err)
		}
		data, source = raw, step.ReportPath
	case domain.ReportSARIFStdout, domain.ReportESLintStdout:
		data, source = stdout, "stdout"
	default:
		return ports.Findings{}, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return ports.Findings{}, nil
	}

	var (
		sev   domain.Severity
		count int
		err   error
	)
	if step.Report == domain.ReportESLintStdout {
		sev, count, err = parseESLint(data)
	} else {
		sev, count, err = parseSARIF(data)
	}
	if err != nil {
		return ports.Findings{}, err
	}
	return ports.Findings{Severity: sev, Count: count, Source: source, Parsed: true}, nil
}

var _ ports.ReportParser = (*Parser)(nil)
