package commands

// Output formats accepted by --format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrTelemetryOff             = "telemetry store is off; nothing to read"
	ErrInvalidLimit             = "--limit must be >= 1"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgNoHistoryRecorded  = "No history recorded for this fingerprint."

	MsgNoDifferencesFromDefault = "No differences from default configuration."
)
