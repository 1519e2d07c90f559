package telemetry

import (
	"sync"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

const storeLabelMemory = "memory"

// MemoryStore keeps runs for the lifetime of the process.
type MemoryStore struct {
	mu         sync.RWMutex
	runs       map[string][]domain.TelemetryRun
	maxHistory int
}

// NewMemoryStore creates an empty store. maxHistory <= 0 selects the default cap.
func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = domain.DefaultMaxHistory
	}
	return &MemoryStore{runs: map[string][]domain.TelemetryRun{}, maxHistory: maxHistory}
}

// Append implements ports.TelemetryStore.
func (m *MemoryStore) Append(run domain.TelemetryRun) error {
	if run.Fingerprint == "" {
		err := &domain.StoreError{Op: "append", Err: domain.ErrInvalidFingerprint}
		recordAppend(storeLabelMemory, err, 0)
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	history := append(m.runs[run.Fingerprint], run)
	evicted := 0
	if len(history) > m.maxHistory {
		evicted = len(history) - m.maxHistory
		history = append([]domain.TelemetryRun(nil), history[evicted:]...)
	}
	m.runs[run.Fingerprint] = history
	recordAppend(storeLabelMemory, nil, evicted)
	return nil
}

// History implements ports.TelemetryStore.
func (m *MemoryStore) History(fingerprint string, limit int) ([]domain.TelemetryRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.runs[fingerprint], limit), nil
}

// Latest implements ports.TelemetryStore.
func (m *MemoryStore) Latest(fingerprint string) (*domain.TelemetryRun, error) {
	runs, _ := m.History(fingerprint, 1)
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Scan implements ports.TelemetryAuditor. Memory never holds corrupt records.
func (m *MemoryStore) Scan(fingerprint string) (domain.TelemetryScan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.TelemetryScan{Runs: append([]domain.TelemetryRun(nil), m.runs[fingerprint]...)}, nil
}

var (
	_ ports.TelemetryStore   = (*MemoryStore)(nil)
	_ ports.TelemetryAuditor = (*MemoryStore)(nil)
)
