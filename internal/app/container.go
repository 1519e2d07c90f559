package app

import (
	"context"
	"fmt"

	"github.com/emperator-dev/emperator/internal/application/doctor"
	"github.com/emperator-dev/emperator/internal/application/plan"
	"github.com/emperator-dev/emperator/internal/application/run"
	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/config"
	"github.com/emperator-dev/emperator/internal/infrastructure/executor"
	"github.com/emperator-dev/emperator/internal/infrastructure/probe"
	"github.com/emperator-dev/emperator/internal/infrastructure/report"
	"github.com/emperator-dev/emperator/internal/infrastructure/telemetry"
	"github.com/emperator-dev/emperator/internal/pkg/filesystem"
	"github.com/emperator-dev/emperator/internal/pkg/logger"
	"github.com/emperator-dev/emperator/internal/ports"
)

// Options are the global CLI inputs the container depends on.
type Options struct {
	Root       string
	ConfigPath string
	Verbose    bool
	// Logger overrides the environment-derived logger (tests).
	Logger ports.Logger
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Root          string
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	Logger        ports.Logger
	Prober        ports.CapabilityProber
	Builder       *plan.Builder
	Runner        ports.StepRunner
	Parser        ports.ReportParser
	DoctorService *doctor.Service
}

// NewConfigLoader resolves the root and builds the loader alone, for
// commands that must report configuration errors themselves.
func NewConfigLoader(opts Options) (*config.FileLoader, string, error) {
	root, err := filesystem.AbsRoot(opts.Root)
	if err != nil {
		return nil, "", err
	}
	return config.NewFileLoader(root, filesystem.ExpandPath(opts.ConfigPath)), root, nil
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader, root, err := NewConfigLoader(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.FromEnv(opts.Verbose)
	}

	newProber := func(cfg domain.Config) ports.CapabilityProber { return probe.New(cfg, log) }

	return &Container{
		Root:         root,
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Prober:       newProber(cfg),
		Builder:      plan.NewBuilder(cfg),
		Runner:       executor.NewLocalExecutor(log),
		Parser:       report.NewParser(),
		DoctorService: &doctor.Service{
			ConfigProvider: cfgLoader,
			NewProber:      newProber,
			Root:           root,
		},
	}, nil
}

// Analysis is a built plan with its fingerprint.
type Analysis struct {
	Plan        domain.AnalysisPlan
	Fingerprint string
}

// Analyze probes the root, builds the plan narrowed to requested tools and
// fingerprints it together with extra metadata.
func (c *Container) Analyze(ctx context.Context, requested []string, extra map[string]string) (Analysis, error) {
	languages, tools, err := c.Prober.Probe(ctx, c.Root)
	if err != nil {
		return Analysis{}, err
	}
	p := c.Builder.Build(c.Root, languages, tools, requested)
	return Analysis{Plan: p, Fingerprint: plan.Fingerprint(p, extra)}, nil
}

// StoreOptions overrides the configured telemetry store.
type StoreOptions struct {
	Kind string
	Dir  string
}

// OpenStore opens the configured store, honouring overrides. It returns
// (nil, nil) when telemetry is off.
func (c *Container) OpenStore(override StoreOptions) (*telemetry.Store, error) {
	kind := c.Config.Telemetry.Store
	if override.Kind != "" {
		kind = override.Kind
	}
	dir := c.Config.TelemetryDirFor(c.Root)
	if override.Dir != "" {
		dir = filesystem.ExpandPath(override.Dir)
	}
	store, err := telemetry.Open(telemetry.Options{
		Kind:       kind,
		Dir:        dir,
		MaxHistory: c.Config.Telemetry.MaxHistory,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}
	return store, nil
}

// RunService builds an orchestrator bound to store and progress.
func (c *Container) RunService(store ports.TelemetryStore, progress ports.ProgressReporter) *run.Service {
	return &run.Service{
		Runner:   c.Runner,
		Parser:   c.Parser,
		Store:    store,
		Logger:   c.Logger,
		Progress: progress,
	}
}
