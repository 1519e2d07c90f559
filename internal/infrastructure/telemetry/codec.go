// Package telemetry persists TelemetryRuns keyed by plan fingerprint.
//
// Three stores share one line codec: MemoryStore for dry runs and tests,
// FileStore for the durable JSONL history under the project root, and
// SQLiteStore for a single-file database. Each enforces a FIFO retention
// cap per fingerprint.
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/emperator-dev/emperator/internal/domain"
)

var fingerprintPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func validateFingerprint(fp string) error {
	if !fingerprintPattern.MatchString(fp) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidFingerprint, fp)
	}
	return nil
}

func encodeRun(run domain.TelemetryRun) ([]byte, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encoding run %s: %w", run.ID, err)
	}
	return data, nil
}

func decodeRun(line []byte) (domain.TelemetryRun, error) {
	var run domain.TelemetryRun
	if err := json.Unmarshal(line, &run); err != nil {
		return domain.TelemetryRun{}, err
	}
	if run.ID == "" || run.Fingerprint == "" {
		return domain.TelemetryRun{}, errors.New("record is missing id or fingerprint")
	}
	return run, nil
}

// rawLine keeps the original bytes so rewrites never re-encode old records.
type rawLine struct {
	number int
	data   []byte
	run    domain.TelemetryRun
	err    error
}

func splitLines(content []byte) []rawLine {
	var lines []rawLine
	for i, data := range bytes.Split(content, []byte("\n")) {
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		run, err := decodeRun(data)
		lines = append(lines, rawLine{number: i + 1, data: data, run: run, err: err})
	}
	return lines
}

func scanLines(lines []rawLine) domain.TelemetryScan {
	var scan domain.TelemetryScan
	for _, line := range lines {
		if line.err != nil {
			scan.Corrupt = append(scan.Corrupt, domain.CorruptRecord{Line: line.number, Err: line.err})
			continue
		}
		scan.Runs = append(scan.Runs, line.run)
	}
	return scan
}

// newestFirst reverses append order and applies limit (<= 0 means all).
func newestFirst(runs []domain.TelemetryRun, limit int) []domain.TelemetryRun {
	n := len(runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.TelemetryRun, 0, n)
	for i := len(runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, runs[i])
	}
	return out
}
