package domain

// Config mirrors .emperator/config.yaml layered over the embedded defaults.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Analysis            AnalysisSettings  `yaml:"analysis"`
	Telemetry           TelemetrySettings `yaml:"telemetry"`
	Gate                GateSettings      `yaml:"gate"`
	Cancel              CancelSettings    `yaml:"cancel"`
	Metrics             MetricsSettings   `yaml:"metrics"`
	OTel                OTelSettings      `yaml:"otel"`
	Tools               []ToolSpec        `yaml:"tools" validate:"dive"`
}

// AnalysisSettings controls probing and plan construction.
type AnalysisSettings struct {
	SkipDirs     []string `yaml:"skip_dirs"`
	SampleLimit  int      `yaml:"sample_limit" validate:"gte=1"`
	ProbeTimeout string   `yaml:"probe_timeout" validate:"required,duration"`
	StepTimeout  string   `yaml:"step_timeout" validate:"required,duration"`
	ReportsDir   string   `yaml:"reports_dir" validate:"required"`
	CodeQLDBDir  string   `yaml:"codeql_db_dir" validate:"required"`
}

// TelemetrySettings selects and sizes the telemetry store.
type TelemetrySettings struct {
	Store      string `yaml:"store" validate:"oneof=memory file sqlite off"`
	Dir        string `yaml:"dir" validate:"required"`
	MaxHistory int    `yaml:"max_history" validate:"gte=1,lte=1000"`
}

// GateSettings tunes the verdict.
type GateSettings struct {
	FailurePolicy  string `yaml:"failure_policy" validate:"oneof=ignore review block"`
	SeverityFilter string `yaml:"severity_filter" validate:"severity"`
}

// CancelSettings chooses between step-boundary and hard cancellation.
type CancelSettings struct {
	Hard bool `yaml:"hard"`
}

// MetricsSettings configures the prometheus textfile export.
type MetricsSettings struct {
	PrometheusTextfile string `yaml:"prometheus_textfile"`
}

// OTelSettings configures trace and metric export.
type OTelSettings struct {
	Exporter    string `yaml:"exporter" validate:"oneof=none stdout"`
	ServiceName string `yaml:"service_name"`
}
