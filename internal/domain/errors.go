package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStepLaunch marks a subprocess that could not be started.
	ErrStepLaunch = errors.New("step could not be launched")
	// ErrStepTimeout marks a subprocess killed after exceeding its timeout.
	ErrStepTimeout = errors.New("step timed out")
	// ErrUnknownStoreKind is returned by the store factory.
	ErrUnknownStoreKind = errors.New("unknown telemetry store kind")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidConfig    = errors.New("invalid configuration")
	// ErrInvalidFingerprint rejects keys that cannot name a telemetry file.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)

// ProbeError is fatal: the target root could not be read.
type ProbeError struct {
	Root string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Root, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// StoreError wraps telemetry persistence failures.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("telemetry %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("telemetry %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CorruptRecord describes one unparseable telemetry line. It is reported as
// data alongside the valid runs and never returned as an error.
type CorruptRecord struct {
	Line int
	Err  error
}

func (c CorruptRecord) String() string {
	return fmt.Sprintf("line %d: %v", c.Line, c.Err)
}
