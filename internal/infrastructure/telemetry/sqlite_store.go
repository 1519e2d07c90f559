package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

const storeLabelSQLite = "sqlite"

// SQLiteStore persists runs in a single SQLite database file.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	maxHistory int
	log        ports.Logger
	mu         sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string, maxHistory int, log ports.Logger) (*SQLiteStore, error) {
	if maxHistory <= 0 {
		maxHistory = domain.DefaultMaxHistory
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, &domain.StoreError{Op: "open", Path: path, Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Path: path, Err: err}
	}
	store := &SQLiteStore{db: db, path: path, maxHistory: maxHistory, log: log}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, &domain.StoreError{Op: "open", Path: path, Err: err}
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS telemetry_runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			fingerprint TEXT NOT NULL,
			run_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			gate TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_runs_fingerprint ON telemetry_runs (fingerprint, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements ports.TelemetryStore. Insert and retention trim happen in
// one transaction.
func (s *SQLiteStore) Append(run domain.TelemetryRun) (err error) {
	evicted := 0
	defer func() { recordAppend(storeLabelSQLite, err, evicted) }()

	if err := validateFingerprint(run.Fingerprint); err != nil {
		return &domain.StoreError{Op: "append", Path: s.path, Err: err}
	}
	payload, err := encodeRun(run)
	if err != nil {
		return &domain.StoreError{Op: "append", Path: s.path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &domain.StoreError{Op: "append", Path: s.path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`INSERT INTO telemetry_runs (fingerprint, run_id, started_at, gate, payload) VALUES (?, ?, ?, ?, ?)`,
		run.Fingerprint, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), string(run.Gate), string(payload)); err != nil {
		return &domain.StoreError{Op: "append", Path: s.path, Err: err}
	}
	res, err := tx.Exec(`DELETE FROM telemetry_runs WHERE fingerprint = ? AND seq NOT IN (
		SELECT seq FROM telemetry_runs WHERE fingerprint = ? ORDER BY seq DESC LIMIT ?)`,
		run.Fingerprint, run.Fingerprint, s.maxHistory)
	if err != nil {
		return &domain.StoreError{Op: "append", Path: s.path, Err: err}
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil {
		evicted = int(n)
	}
	if err = tx.Commit(); err != nil {
		return &domain.StoreError{Op: "append", Path: s.path, Err: err}
	}
	return nil
}

// Scan implements ports.TelemetryAuditor. CorruptRecord.Line carries the row sequence number.
func (s *SQLiteStore) Scan(fingerprint string) (domain.TelemetryScan, error) {
	rows, err := s.db.Query(`SELECT seq, payload FROM telemetry_runs WHERE fingerprint = ? ORDER BY seq ASC`, fingerprint)
	if err != nil {
		return domain.TelemetryScan{}, &domain.StoreError{Op: "read", Path: s.path, Err: err}
	}
	defer rows.Close()

	var scan domain.TelemetryScan
	for rows.Next() {
		var (
			seq     int
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return domain.TelemetryScan{}, &domain.StoreError{Op: "read", Path: s.path, Err: err}
		}
		run, decodeErr := decodeRun([]byte(payload))
		if decodeErr != nil {
			scan.Corrupt = append(scan.Corrupt, domain.CorruptRecord{Line: seq, Err: decodeErr})
			s.log.Warn("skipping corrupt telemetry record", map[string]interface{}{"path": s.path, "seq": seq, "error": decodeErr.Error()})
			continue
		}
		scan.Runs = append(scan.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return domain.TelemetryScan{}, &domain.StoreError{Op: "read", Path: s.path, Err: err}
	}
	recordCorrupt(storeLabelSQLite, len(scan.Corrupt))
	return scan, nil
}

// History implements ports.TelemetryStore.
func (s *SQLiteStore) History(fingerprint string, limit int) ([]domain.TelemetryRun, error) {
	scan, err := s.Scan(fingerprint)
	if err != nil {
		return nil, err
	}
	return newestFirst(scan.Runs, limit), nil
}

// Latest implements ports.TelemetryStore.
func (s *SQLiteStore) Latest(fingerprint string) (*domain.TelemetryRun, error) {
	runs, err := s.History(fingerprint, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// Fingerprints lists stored fingerprints.
func (s *SQLiteStore) Fingerprints() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT fingerprint FROM telemetry_runs ORDER BY fingerprint`)
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Path: s.path, Err: err}
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, &domain.StoreError{Op: "list", Path: s.path, Err: err}
		}
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	return out, nil
}

var (
	_ ports.TelemetryStore   = (*SQLiteStore)(nil)
	_ ports.TelemetryAuditor = (*SQLiteStore)(nil)
)
