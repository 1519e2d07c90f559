package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/emperator-dev/emperator/assets"
	configapp "github.com/emperator-dev/emperator/internal/application/config"
	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/pkg/filesystem"
	"github.com/emperator-dev/emperator/internal/ports"
)

// FileLoader layers configuration sources, lowest precedence first: the
// embedded defaults, <root>/.emperator/config.yaml (or EMPERATOR_CONFIG),
// a .env file, then EMPERATOR_* environment variables.
type FileLoader struct {
	root         string
	overridePath string
	getenv       func(string) string
	dotenv       bool
}

// NewFileLoader builds a new loader. path, when set, replaces the project
// config file and must exist.
func NewFileLoader(root, path string) *FileLoader {
	return &FileLoader{root: root, overridePath: path, getenv: os.Getenv, dotenv: true}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}

	path, explicit := l.resolvePath()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return domain.Config{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if cfg, err = overlay(cfg, data); err != nil {
			return domain.Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if l.dotenv {
		// .env never overrides variables already set in the environment.
		_ = godotenv.Load(filepath.Join(l.root, ".env"))
	}
	if err := applyEnv(&cfg, l.getenv); err != nil {
		return domain.Config{}, err
	}

	cfg = hydrateDefaults(cfg)
	if err := configapp.Validate(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Path returns the config file the loader reads.
func (l *FileLoader) Path() string {
	path, _ := l.resolvePath()
	return path
}

func (l *FileLoader) resolvePath() (string, bool) {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath), true
	}
	if custom := l.getenv(EnvConfig); custom != "" {
		return filesystem.ExpandPath(custom), true
	}
	return filepath.Join(l.root, domain.WorkspaceDir, "config.yaml"), false
}

// Defaults parses the embedded default configuration with blanks filled in.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

// overlay decodes data over base. Tools merge by id: a matching id replaces
// the built-in definition, new ids are appended.
func overlay(base domain.Config, data []byte) (domain.Config, error) {
	builtin := base.Tools
	var user struct {
		Tools []domain.ToolSpec `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &user); err != nil {
		return domain.Config{}, err
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return domain.Config{}, err
	}
	base.Tools = mergeTools(builtin, user.Tools)
	return base, nil
}

func mergeTools(builtin, user []domain.ToolSpec) []domain.ToolSpec {
	merged := append([]domain.ToolSpec(nil), builtin...)
	index := make(map[string]int, len(merged))
	for i, tool := range merged {
		index[tool.ID] = i
	}
	for _, tool := range user {
		if i, ok := index[tool.ID]; ok {
			merged[i] = tool
			continue
		}
		index[tool.ID] = len(merged)
		merged = append(merged, tool)
	}
	return merged
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Analysis.SampleLimit == 0 {
		cfg.Analysis.SampleLimit = domain.DefaultSampleLimit
	}
	if cfg.Telemetry.MaxHistory == 0 {
		cfg.Telemetry.MaxHistory = domain.DefaultMaxHistory
	}
	if cfg.Telemetry.Dir == "" {
		cfg.Telemetry.Dir = domain.DefaultTelemetryDir
	}
	if cfg.Gate.FailurePolicy == "" {
		cfg.Gate.FailurePolicy = string(domain.FailureReview)
	}
	if cfg.OTel.Exporter == "" {
		cfg.OTel.Exporter = "none"
	}
	for i := range cfg.Tools {
		if cfg.Tools[i].Report == "" {
			cfg.Tools[i].Report = domain.ReportNone
		}
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
