// Package executor runs plan steps as subprocesses.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// LocalExecutor runs steps directly, without a shell.
type LocalExecutor struct {
	log ports.Logger
}

// NewLocalExecutor builds a new executor.
func NewLocalExecutor(log ports.Logger) *LocalExecutor {
	return &LocalExecutor{log: log}
}

// Run executes the step's setup commands in order and then its main argv.
// A non-zero setup exit short-circuits the step and is reported through
// StepResult.SetupExitCode.
func (e *LocalExecutor) Run(ctx context.Context, step domain.PlanStep, dir string) (ports.StepResult, error) {
	if len(step.Argv) == 0 {
		return ports.StepResult{}, fmt.Errorf("%w: %s has an empty command", domain.ErrStepLaunch, step.Label())
	}
	if step.ReportPath != "" {
		if err := os.MkdirAll(filepath.Dir(step.ReportPath), domain.DirectoryPermissions); err != nil {
			return ports.StepResult{}, fmt.Errorf("%w: create report dir: %v", domain.ErrStepLaunch, err)
		}
		// A report left over from a previous run must not be mistaken for this one.
		_ = os.Remove(step.ReportPath)
	}

	for _, setup := range step.Setup {
		code, stdout, stderr, err := e.execute(ctx, setup, dir)
		if err != nil {
			return ports.StepResult{Stdout: stdout, Stderr: stderr}, err
		}
		if code != 0 {
			e.log.Warn("step setup failed", map[string]interface{}{"step": step.Label(), "exit_code": code})
			return ports.StepResult{ExitCode: code, SetupExitCode: domain.IntPtr(code), Stdout: stdout, Stderr: stderr}, nil
		}
	}

	code, stdout, stderr, err := e.execute(ctx, step.Argv, dir)
	if err != nil {
		return ports.StepResult{Stdout: stdout, Stderr: stderr}, err
	}
	return ports.StepResult{ExitCode: code, Stdout: stdout, Stderr: stderr}, nil
}

func (e *LocalExecutor) execute(ctx context.Context, argv []string, dir string) (int, []byte, []byte, error) {
	if len(argv) == 0 {
		return 0, nil, nil, fmt.Errorf("%w: empty command", domain.ErrStepLaunch)
	}
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = dir
	c.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	e.log.Debug("command finished", map[string]interface{}{
		"command":     argv[0],
		"duration_ms": time.Since(start).Milliseconds(),
	})

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return 0, stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%w: %s", domain.ErrStepTimeout, argv[0])
	case errors.Is(ctxErr, context.Canceled):
		return 0, stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%s interrupted: %w", argv[0], context.Canceled)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), stdout.Bytes(), stderr.Bytes(), nil
	}
	if err != nil {
		return 0, stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%w: %s: %v", domain.ErrStepLaunch, argv[0], err)
	}
	return 0, stdout.Bytes(), stderr.Bytes(), nil
}

var _ ports.StepRunner = (*LocalExecutor)(nil)
