package plan

import (
	"regexp"
	"testing"

	"github.com/emperator-dev/emperator/internal/domain"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func basePlan() domain.AnalysisPlan {
	return NewBuilder(testConfig()).Build("/repo", testLanguages(), testAvailability(), nil)
}

func TestFingerprintShape(t *testing.T) {
	fp := Fingerprint(basePlan(), nil)
	if !hexDigest.MatchString(fp) {
		t.Fatalf("fingerprint %q is not 64 hex chars", fp)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(basePlan(), map[string]string{"b": "2", "a": "1"})
	b := Fingerprint(basePlan(), map[string]string{"a": "1", "b": "2"})
	if a != b {
		t.Fatalf("fingerprint not stable: %s vs %s", a, b)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint(basePlan(), nil)

	tests := []struct {
		name   string
		mutate func(p *domain.AnalysisPlan) map[string]string
	}{
		{
			name: "language file count",
			mutate: func(p *domain.AnalysisPlan) map[string]string {
				p.Languages[0].FileCount++
				return nil
			},
		},
		{
			name: "tool installed flag",
			mutate: func(p *domain.AnalysisPlan) map[string]string {
				p.Tools[1].Installed = true
				return nil
			},
		},
		{
			name: "step argv",
			mutate: func(p *domain.AnalysisPlan) map[string]string {
				p.Steps[0].Argv = append(append([]string(nil), p.Steps[0].Argv...), "--verbose")
				return nil
			},
		},
		{
			name: "extra metadata",
			mutate: func(*domain.AnalysisPlan) map[string]string {
				return map[string]string{"semgrep_version": "1.90.0"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePlan()
			extra := tt.mutate(&p)
			if got := Fingerprint(p, extra); got == base {
				t.Fatalf("fingerprint unchanged after mutating %s", tt.name)
			}
		})
	}
}

func TestFingerprintIgnoresVersionsAndSamples(t *testing.T) {
	base := Fingerprint(basePlan(), nil)

	p := basePlan()
	p.Tools[0].Version = "2.0.0"
	p.Languages[0].Samples = []string{"zzz.py", "other.py"}
	p.Hints = nil
	if got := Fingerprint(p, nil); got != base {
		t.Fatalf("version or sample change altered fingerprint")
	}
}
