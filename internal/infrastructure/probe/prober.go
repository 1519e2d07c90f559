// Package probe implements the capability prober: a file-extension census
// of the target tree and --version probes for each registered analyzer.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

const maxConcurrentProbes = 4

// Prober implements ports.CapabilityProber.
type Prober struct {
	tools       []domain.ToolSpec
	skipDirs    map[string]struct{}
	sampleLimit int
	timeout     time.Duration
	log         ports.Logger

	lookPath   func(string) (string, error)
	runVersion func(ctx context.Context, path string, args ...string) ([]byte, error)
}

// New builds a Prober from the effective configuration.
func New(cfg domain.Config, log ports.Logger) *Prober {
	skip := make(map[string]struct{}, len(cfg.Analysis.SkipDirs))
	for _, name := range cfg.Analysis.SkipDirs {
		skip[name] = struct{}{}
	}
	limit := cfg.Analysis.SampleLimit
	if limit <= 0 {
		limit = domain.DefaultSampleLimit
	}
	return &Prober{
		tools:       append([]domain.ToolSpec(nil), cfg.Tools...),
		skipDirs:    skip,
		sampleLimit: limit,
		timeout:     cfg.ProbeTimeoutDuration(),
		log:         log,
		lookPath:    exec.LookPath,
		runVersion:  runVersion,
	}
}

// Probe runs the census and the tool probes.
func (p *Prober) Probe(ctx context.Context, root string) ([]domain.LanguageProfile, []domain.ToolAvailability, error) {
	languages, err := p.Languages(ctx, root)
	if err != nil {
		return nil, nil, err
	}
	return languages, p.Tools(ctx), nil
}

// Tools probes every registered analyzer concurrently. Results keep registry
// order and absence is reported in ToolAvailability, never as an error.
func (p *Prober) Tools(ctx context.Context) []domain.ToolAvailability {
	results := make([]domain.ToolAvailability, len(p.tools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, tool := range p.tools {
		g.Go(func() error {
			results[i] = p.probeTool(gctx, tool)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Prober) probeTool(ctx context.Context, tool domain.ToolSpec) domain.ToolAvailability {
	avail := domain.ToolAvailability{Tool: tool.ID}
	location, err := p.lookPath(tool.Binary)
	if err != nil {
		avail.Reason = fmt.Sprintf("%s not found on PATH", tool.Binary)
		p.log.Debug("tool not found", map[string]interface{}{"tool": tool.ID, "binary": tool.Binary})
		return avail
	}
	avail.Location = location
	if len(tool.VersionArgs) == 0 {
		avail.Installed = true
		return avail
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	out, err := p.runVersion(cctx, location, tool.VersionArgs...)
	if err != nil {
		avail.Reason = versionFailure(cctx, tool, p.timeout, err)
		p.log.Debug("tool probe failed", map[string]interface{}{"tool": tool.ID, "reason": avail.Reason})
		return avail
	}
	avail.Installed = true
	avail.Version = firstLine(out)
	return avail
}

func versionFailure(ctx context.Context, tool domain.ToolSpec, timeout time.Duration, err error) string {
	probe := strings.TrimSpace(tool.Binary + " " + strings.Join(tool.VersionArgs, " "))
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out after %s", probe, timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("%s exited with code %d", probe, exitErr.ExitCode())
	}
	return fmt.Sprintf("%s failed: %v", probe, err)
}

func runVersion(ctx context.Context, path string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	return cmd.CombinedOutput()
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

var _ ports.CapabilityProber = (*Prober)(nil)
