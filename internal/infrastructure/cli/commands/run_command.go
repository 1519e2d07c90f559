package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/application/run"
	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli/helpers"
	"github.com/emperator-dev/emperator/internal/infrastructure/instrument"
	"github.com/emperator-dev/emperator/internal/ports"
	"github.com/emperator-dev/emperator/internal/version"
)

type runFlags struct {
	tools          []string
	severity       string
	includeUnready bool
	store          string
	storePath      string
	hardCancel     bool
	failurePolicy  string
	timeout        time.Duration
	metricsFile    string
	format         string
	meta           []string
}

// NewRunCommand creates the run command
func NewRunCommand(session *Session) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the analysis plan, record telemetry and gate on severity",
		Long: "Runs each ready plan step in order, records one telemetry run and exits\n" +
			"0 on PASS, 10 on REVIEW and 20 on BLOCK.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, session, flags)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.tools, "tool", nil, "Only execute these tools (repeatable)")
	f.StringVar(&flags.severity, "severity", "", "Ignore findings below this severity when gating (info|low|medium|high|critical)")
	f.BoolVar(&flags.includeUnready, "include-unready", false, "Also execute steps whose tool is missing")
	f.StringVar(&flags.store, "store", "", "Telemetry store: memory|file|sqlite|off (default from config)")
	f.StringVar(&flags.storePath, "store-path", "", "Override the telemetry storage directory")
	f.BoolVar(&flags.hardCancel, "hard-cancel", false, "Kill the running analyzer on interrupt instead of waiting for it")
	f.StringVar(&flags.failurePolicy, "failure-policy", "", "How failed steps affect the gate: ignore|review|block")
	f.DurationVar(&flags.timeout, "timeout", 0, "Per-step timeout (default from config)")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write prometheus metrics to this textfile after the run")
	f.StringVar(&flags.format, "format", FormatTable, "Output format: table|json|yaml")
	f.StringArrayVar(&flags.meta, "meta", nil, "Extra key=value folded into the fingerprint (repeatable)")
	return cmd
}

func runAnalysis(cmd *cobra.Command, session *Session, flags runFlags) error {
	ctx := cmd.Context()
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	extra, err := parseMeta(flags.meta)
	if err != nil {
		return err
	}
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	opts, err := runOptions(container.Config, flags, extra)
	if err != nil {
		return err
	}

	shutdown, err := instrument.Init(ctx, instrument.Config{
		ServiceName:    container.Config.OTel.ServiceName,
		ServiceVersion: version.Version,
		Exporter:       container.Config.OTel.Exporter,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			container.Logger.Warn("otel shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	analysis, err := container.Analyze(ctx, nil, extra)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	var store ports.TelemetryStore
	opened, err := container.OpenStore(app.StoreOptions{Kind: flags.store, Dir: flags.storePath})
	if err != nil {
		fmt.Fprintf(errOut, "telemetry not persisted: %v\n", err)
	} else if opened != nil {
		defer opened.Close()
		store = opened
	}

	svc := container.RunService(store, helpers.NewProgress(errOut))
	result, runErr := svc.Run(ctx, analysis.Plan, analysis.Fingerprint, opts)

	if err := printRun(cmd.OutOrStdout(), flags.format, result); err != nil {
		return err
	}
	var storeErr *domain.StoreError
	switch {
	case errors.As(runErr, &storeErr):
		fmt.Fprintf(errOut, "telemetry not persisted: %v\n", storeErr)
	case runErr != nil:
		return runErr
	}

	metricsFile := flags.metricsFile
	if metricsFile == "" {
		metricsFile = container.Config.Metrics.PrometheusTextfile
	}
	if metricsFile != "" {
		if err := instrument.WriteTextfile(metricsFile); err != nil {
			fmt.Fprintf(errOut, "metrics not written: %v\n", err)
		}
	}

	if result.Gate != domain.GatePass {
		return &ExitError{Code: result.Gate.ExitCode()}
	}
	return nil
}

func runOptions(cfg domain.Config, flags runFlags, extra map[string]string) (run.Options, error) {
	opts := run.Options{
		ToolFilter:     flags.tools,
		SeverityFilter: cfg.SeverityFilterLevel(),
		IncludeUnready: flags.includeUnready,
		FailurePolicy:  cfg.FailurePolicyValue(),
		HardCancel:     flags.hardCancel || cfg.Cancel.Hard,
		StepTimeout:    cfg.StepTimeoutDuration(),
		Metadata:       extra,
	}
	if flags.severity != "" {
		sev, err := domain.ParseSeverity(flags.severity)
		if err != nil {
			return run.Options{}, fmt.Errorf("--severity: %w", err)
		}
		opts.SeverityFilter = sev
	}
	if flags.failurePolicy != "" {
		policy, err := domain.ParseFailurePolicy(flags.failurePolicy)
		if err != nil {
			return run.Options{}, fmt.Errorf("--failure-policy: %w", err)
		}
		opts.FailurePolicy = policy
	}
	if flags.timeout > 0 {
		opts.StepTimeout = flags.timeout
	}
	return opts, nil
}

func printRun(out io.Writer, format string, result domain.TelemetryRun) error {
	if format != FormatTable {
		return writeStructured(out, format, result)
	}
	helpers.NewRenderer(out).Run(result)
	return nil
}
