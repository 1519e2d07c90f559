package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// FilePermissions is used for telemetry and report files (rw-r--r--)
	FilePermissions = 0o644
)

// Timeout and duration constants
const (
	// DefaultProbeTimeout bounds each tool --version probe
	DefaultProbeTimeout = 3 * time.Second
	// DefaultStepTimeout bounds each analyzer subprocess
	DefaultStepTimeout = 10 * time.Minute
)

// Limit constants
const (
	// DefaultSampleLimit caps example paths kept per language
	DefaultSampleLimit = 5
	// DefaultMaxHistory is the per-fingerprint retention cap
	DefaultMaxHistory = 20
	// MaxHistoryCap is the largest retention the validator accepts
	MaxHistoryCap = 1000
	// DefaultHistoryLimit is the number of runs the history command prints
	DefaultHistoryLimit = 10
)

// Exit codes for automation.
const (
	ExitPass   = 0
	ExitFatal  = 1
	ExitReview = 10
	ExitBlock  = 20
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreOff    = "off"
)

// Workspace layout relative to the analysed root.
const (
	WorkspaceDir        = ".emperator"
	DefaultTelemetryDir = ".emperator/telemetry"
	DefaultReportsDir   = ".emperator/reports"
	DefaultCodeQLDBDir  = ".emperator/codeql-db"
	TelemetryFileExt    = ".jsonl"
	SQLiteFileName      = "telemetry.db"
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
