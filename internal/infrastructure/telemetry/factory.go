package telemetry

import (
	"fmt"
	"path/filepath"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

// Options selects a store implementation.
type Options struct {
	Kind       string
	Dir        string
	MaxHistory int
}

// Store bundles the selected store with its cleanup.
type Store struct {
	ports.TelemetryStore
	Kind     string
	Location string
	close    func() error
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Lister is implemented by durable stores that can enumerate fingerprints.
type Lister interface {
	Fingerprints() ([]string, error)
}

// Open builds the store named by opts.Kind. Kind "off" returns (nil, nil):
// the caller runs without persistence.
func Open(opts Options, log ports.Logger) (*Store, error) {
	switch opts.Kind {
	case domain.StoreOff:
		return nil, nil
	case domain.StoreMemory:
		return &Store{TelemetryStore: NewMemoryStore(opts.MaxHistory), Kind: opts.Kind, Location: "memory"}, nil
	case "", domain.StoreFile:
		fs, err := NewFileStore(opts.Dir, opts.MaxHistory, log)
		if err != nil {
			return nil, err
		}
		return &Store{TelemetryStore: fs, Kind: domain.StoreFile, Location: opts.Dir}, nil
	case domain.StoreSQLite:
		path := filepath.Join(opts.Dir, domain.SQLiteFileName)
		db, err := NewSQLiteStore(path, opts.MaxHistory, log)
		if err != nil {
			return nil, err
		}
		return &Store{TelemetryStore: db, Kind: opts.Kind, Location: path, close: db.Close}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want memory|file|sqlite|off)", domain.ErrUnknownStoreKind, opts.Kind)
	}
}

// Auditor exposes corruption reporting when the store supports it.
func (s *Store) Auditor() (ports.TelemetryAuditor, bool) {
	a, ok := s.TelemetryStore.(ports.TelemetryAuditor)
	return a, ok
}

// Fingerprints lists stored fingerprints when the store supports it.
func (s *Store) Fingerprints() ([]string, error) {
	if l, ok := s.TelemetryStore.(Lister); ok {
		return l.Fingerprints()
	}
	return nil, nil
}
