package helpers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/emperator-dev/emperator/internal/domain"
)

var (
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	reviewStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	blockStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// Renderer prints plans, runs and reports. Styling is applied only when
// out is a terminal and NO_COLOR is unset.
type Renderer struct {
	out    io.Writer
	styled bool
}

// NewRenderer builds a renderer for out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, styled: IsTerminal(out) && os.Getenv("NO_COLOR") == ""}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Gate renders a verdict with its colour.
func (r *Renderer) Gate(g domain.Gate) string {
	switch g {
	case domain.GateBlock:
		return r.style(blockStyle, string(g))
	case domain.GateReview:
		return r.style(reviewStyle, string(g))
	default:
		return r.style(passStyle, string(g))
	}
}

// Plan prints the plan in table form.
func (r *Renderer) Plan(p domain.AnalysisPlan, fingerprint string) {
	fmt.Fprintf(r.out, "%s %s\n", r.style(headerStyle, "Root:"), p.Root)
	fmt.Fprintf(r.out, "%s %s\n", r.style(headerStyle, "Fingerprint:"), fingerprint)

	r.Languages(p.Languages)
	r.Tools(p.Tools)

	fmt.Fprintf(r.out, "\n%s (%d ready of %d)\n", r.style(headerStyle, "Steps"), p.ReadySteps(), len(p.Steps))
	if len(p.Steps) == 0 {
		fmt.Fprintln(r.out, "  (none)")
	}
	for i, step := range p.Steps {
		state := "ready"
		if !step.Ready {
			state = "skip: " + step.Reason
		}
		fmt.Fprintf(r.out, "  %2d. %-28s %s\n", i+1, step.Label(), state)
		for _, setup := range step.Setup {
			fmt.Fprintf(r.out, "      %s %s\n", r.style(dimStyle, "setup:"), strings.Join(setup, " "))
		}
		fmt.Fprintf(r.out, "      %s\n", r.style(dimStyle, strings.Join(step.Argv, " ")))
	}
	r.Hints(p.Hints)
}

// Languages prints the census.
func (r *Renderer) Languages(languages []domain.LanguageProfile) {
	fmt.Fprintf(r.out, "\n%s\n", r.style(headerStyle, "Languages"))
	if len(languages) == 0 {
		fmt.Fprintln(r.out, "  (none detected)")
	}
	for _, lang := range languages {
		fmt.Fprintf(r.out, "  %-12s %6d file(s)", lang.Language, lang.FileCount)
		if len(lang.Samples) > 0 {
			fmt.Fprintf(r.out, "  e.g. %s", strings.Join(lang.Samples, ", "))
		}
		fmt.Fprintln(r.out)
	}
}

// Tools prints tool availability.
func (r *Renderer) Tools(tools []domain.ToolAvailability) {
	fmt.Fprintf(r.out, "\n%s\n", r.style(headerStyle, "Tools"))
	for _, tool := range tools {
		if tool.Installed {
			fmt.Fprintf(r.out, "  %-14s installed  %s\n", tool.Tool, tool.Version)
			continue
		}
		fmt.Fprintf(r.out, "  %-14s missing    %s\n", tool.Tool, tool.Reason)
	}
}

// Hints prints advisory hints.
func (r *Renderer) Hints(hints []domain.AnalysisHint) {
	if len(hints) == 0 {
		return
	}
	fmt.Fprintf(r.out, "\n%s\n", r.style(headerStyle, "Hints"))
	for _, hint := range hints {
		fmt.Fprintf(r.out, "  [%s] %s: %s\n", strings.ToUpper(string(hint.Level)), hint.Topic, hint.Message)
	}
}

// Run prints a finished run.
func (r *Renderer) Run(run domain.TelemetryRun) {
	fmt.Fprintf(r.out, "\n%s %s\n", r.style(headerStyle, "Run:"), run.ID)
	fmt.Fprintf(r.out, "%s %s\n", r.style(headerStyle, "Fingerprint:"), run.Fingerprint)
	for _, ev := range run.Events {
		fmt.Fprintf(r.out, "  %-28s %-8s exit=%-4s severity=%-8s %s\n",
			ev.Label(), ev.Status, exitCode(ev.ExitCode), ev.Severity, ev.Duration.Round(1e6))
	}
	if len(run.Notes) > 0 {
		fmt.Fprintf(r.out, "%s\n", r.style(headerStyle, "Notes"))
		for _, note := range run.Notes {
			fmt.Fprintf(r.out, "  - %s\n", note)
		}
	}
	fmt.Fprintf(r.out, "Gate: %s (effective severity %s, filter %s)\n",
		r.Gate(run.Gate), run.EffectiveSeverity, run.SeverityFilter)
}

// History prints one line per run, newest first.
func (r *Renderer) History(runs []domain.TelemetryRun) {
	for _, run := range runs {
		cancelled := ""
		if run.Cancelled {
			cancelled = " (cancelled)"
		}
		fmt.Fprintf(r.out, "%s | %s | %-6s | %d event(s) | %s%s\n",
			run.StartedAt.Format(domain.TimestampFormat),
			run.ID,
			r.Gate(run.Gate),
			len(run.Events),
			run.Duration.Round(1e6),
			cancelled)
	}
}

// Doctor prints health checks.
func (r *Renderer) Doctor(report domain.HealthReport) {
	for _, check := range report.Checks {
		status := strings.ToUpper(string(check.Status))
		switch check.Status {
		case domain.HealthError:
			status = r.style(blockStyle, status)
		case domain.HealthWarn:
			status = r.style(reviewStyle, status)
		default:
			status = r.style(passStyle, status)
		}
		fmt.Fprintf(r.out, "[%s] %s - %s\n", status, check.Name, check.Details)
	}
}

func exitCode(code *int) string {
	if code == nil {
		return "-"
	}
	return fmt.Sprint(*code)
}
