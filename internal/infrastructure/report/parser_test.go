package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emperator-dev/emperator/internal/domain"
)

const codeqlSARIF = `{
  "version": "2.1.0",
  "runs": [{
    "tool": {"driver": {"name": "CodeQL", "rules": [
      {"id": "py/sql-injection", "properties": {"security-severity": "8.8", "problem.severity": "error"}},
      {"id": "py/unused-import", "properties": {"problem.severity": "recommendation"}}
    ]}},
    "results": [
      {"ruleId": "py/unused-import", "level": "note"},
      {"ruleId": "py/sql-injection", "level": "error"}
    ]
  }]
}`

func TestParseSARIFSeverities(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		want  domain.Severity
		count int
	}{
		{name: "security severity wins", doc: codeqlSARIF, want: domain.SeverityHigh, count: 2},
		{
			name:  "critical cvss on result",
			doc:   `{"runs":[{"results":[{"ruleId":"x","properties":{"security-severity":9.8}}]}]}`,
			want:  domain.SeverityCritical,
			count: 1,
		},
		{
			name:  "level only",
			doc:   `{"runs":[{"results":[{"ruleId":"a","level":"note"},{"ruleId":"b","level":"warning"}]}]}`,
			want:  domain.SeverityMedium,
			count: 2,
		},
		{
			name:  "rule default level by index",
			doc:   `{"runs":[{"tool":{"driver":{"rules":[{"id":"r","defaultConfiguration":{"level":"note"}}]}},"results":[{"ruleIndex":0}]}]}`,
			want:  domain.SeverityLow,
			count: 1,
		},
		{
			name: "no results",
			doc:  `{"runs":[{"results":[]}]}`,
			want: domain.SeverityNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sev, count, err := parseSARIF([]byte(tt.doc))
			if err != nil {
				t.Fatalf("parseSARIF: %v", err)
			}
			if sev != tt.want || count != tt.count {
				t.Fatalf("got %s/%d, want %s/%d", sev, count, tt.want, tt.count)
			}
		})
	}
}

func TestCVSSBands(t *testing.T) {
	tests := map[float64]domain.Severity{
		0:    domain.SeverityNone,
		0.1:  domain.SeverityLow,
		4.0:  domain.SeverityMedium,
		6.9:  domain.SeverityMedium,
		7.0:  domain.SeverityHigh,
		9.0:  domain.SeverityCritical,
		10.0: domain.SeverityCritical,
	}
	for score, want := range tests {
		if got := cvssBand(score); got != want {
			t.Fatalf("cvssBand(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestParseESLint(t *testing.T) {
	doc := `[
	  {"filePath": "/repo/a.js", "messages": [{"ruleId": "no-unused-vars", "severity": 1}]},
	  {"filePath": "/repo/b.ts", "messages": [{"ruleId": "no-eval", "severity": 2}]},
	  {"filePath": "/repo/c.js", "messages": []}
	]`
	sev, count, err := parseESLint([]byte(doc))
	if err != nil {
		t.Fatalf("parseESLint: %v", err)
	}
	if sev != domain.SeverityMedium || count != 2 {
		t.Fatalf("got %s/%d", sev, count)
	}
}

func TestParserSources(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "codeql-python.sarif")
	if err := os.WriteFile(reportPath, []byte(codeqlSARIF), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewParser()

	findings, err := p.Parse(domain.PlanStep{Report: domain.ReportSARIFFile, ReportPath: reportPath}, nil)
	if err != nil || !findings.Parsed || findings.Severity != domain.SeverityHigh || findings.Source != reportPath {
		t.Fatalf("sarif file: %+v, %v", findings, err)
	}

	findings, err = p.Parse(domain.PlanStep{Report: domain.ReportSARIFFile, ReportPath: filepath.Join(dir, "missing.sarif")}, nil)
	if err != nil || findings.Parsed {
		t.Fatalf("missing report should be unparsed without error: %+v, %v", findings, err)
	}

	findings, err = p.Parse(domain.PlanStep{Report: domain.ReportSARIFStdout}, []byte(codeqlSARIF))
	if err != nil || findings.Source != "stdout" || findings.Count != 2 {
		t.Fatalf("sarif stdout: %+v, %v", findings, err)
	}

	if _, err := p.Parse(domain.PlanStep{Report: domain.ReportESLintStdout}, []byte("not json")); err == nil {
		t.Fatalf("expected error for malformed eslint output")
	}

	findings, err = p.Parse(domain.PlanStep{Report: domain.ReportNone}, []byte("anything"))
	if err != nil || findings.Parsed {
		t.Fatalf("report none: %+v, %v", findings, err)
	}
}
