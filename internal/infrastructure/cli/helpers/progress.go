package helpers

import (
	"fmt"
	"io"
	"sync"

	"github.com/emperator-dev/emperator/internal/domain"
)

// Progress implements ports.ProgressReporter, printing one line per step.
// On a terminal a spinner runs while a step is in flight.
type Progress struct {
	out     io.Writer
	spinner *Spinner
	mu      sync.Mutex
}

// NewProgress writes progress to out, usually stderr.
func NewProgress(out io.Writer) *Progress {
	p := &Progress{out: out}
	if IsTerminal(out) {
		p.spinner = NewSpinner(out)
	}
	return p
}

func (p *Progress) OnStepStart(index, total int, step domain.PlanStep) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%d/%d] %s ...\n", index+1, total, step.Label())
	if p.spinner != nil {
		p.spinner.Start()
	}
}

func (p *Progress) OnStepComplete(index, total int, event domain.TelemetryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.Stop()
	}
	if event.Status == domain.StepFailed {
		fmt.Fprintf(p.out, "[%d/%d] %s failed (%s) in %s\n",
			index+1, total, event.Label(), event.Metadata[domain.MetaFailure], event.Duration.Round(1e6))
		return
	}
	fmt.Fprintf(p.out, "[%d/%d] %s exit=%s severity=%s in %s\n",
		index+1, total, event.Label(), exitCode(event.ExitCode), event.Severity, event.Duration.Round(1e6))
}

func (p *Progress) OnStepSkipped(index, total int, step domain.PlanStep, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%d/%d] %s skipped: %s\n", index+1, total, step.Label(), reason)
}
