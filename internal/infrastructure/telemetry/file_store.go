package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/ports"
)

const (
	storeLabelFile = "file"
	scanCacheSize  = 64
)

// FileStore keeps one JSONL file per fingerprint under dir.
//
// Every append rewrites the file through a temporary sibling and an atomic
// rename, so readers never observe a half-written line. Two processes
// appending to the same fingerprint at once race: the last rename wins and
// the other run is lost. Appends to different fingerprints are independent.
type FileStore struct {
	dir        string
	maxHistory int
	log        ports.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, cachedScan]
}

type cachedScan struct {
	modTime time.Time
	size    int64
	scan    domain.TelemetryScan
}

// NewFileStore creates a store rooted at dir. The directory is created lazily
// on first append.
func NewFileStore(dir string, maxHistory int, log ports.Logger) (*FileStore, error) {
	if maxHistory <= 0 {
		maxHistory = domain.DefaultMaxHistory
	}
	cache, err := lru.New[string, cachedScan](scanCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating scan cache: %w", err)
	}
	return &FileStore{dir: dir, maxHistory: maxHistory, log: log, cache: cache}, nil
}

// Dir returns the storage root.
func (f *FileStore) Dir() string {
	return f.dir
}

// Path returns the history file for fingerprint.
func (f *FileStore) Path(fingerprint string) (string, error) {
	if err := validateFingerprint(fingerprint); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, fingerprint+domain.TelemetryFileExt), nil
}

// Append implements ports.TelemetryStore.
func (f *FileStore) Append(run domain.TelemetryRun) (err error) {
	evicted := 0
	defer func() { recordAppend(storeLabelFile, err, evicted) }()

	path, err := f.Path(run.Fingerprint)
	if err != nil {
		return &domain.StoreError{Op: "append", Err: err}
	}
	line, err := encodeRun(run)
	if err != nil {
		return &domain.StoreError{Op: "append", Path: path, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.cache.Remove(run.Fingerprint)

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.StoreError{Op: "append", Path: path, Err: err}
	}
	lines := append(splitLines(existing), rawLine{data: line, run: run})
	lines, evicted = f.retain(lines)

	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l.data)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomicDurable(path, buf.Bytes(), domain.FilePermissions); err != nil {
		return &domain.StoreError{Op: "append", Path: path, Err: err}
	}
	if evicted > 0 {
		f.log.Debug("telemetry retention evicted runs", map[string]interface{}{
			"fingerprint": run.Fingerprint,
			"evicted":     evicted,
		})
	}
	return nil
}

// retain drops the oldest valid runs beyond the cap. Corrupt lines older than
// the oldest surviving run go with them; newer ones are preserved as-is.
func (f *FileStore) retain(lines []rawLine) ([]rawLine, int) {
	valid := 0
	for _, l := range lines {
		if l.err == nil {
			valid++
		}
	}
	drop := valid - f.maxHistory
	if drop <= 0 {
		return lines, 0
	}
	seen := 0
	for i, l := range lines {
		if l.err != nil {
			continue
		}
		if seen == drop {
			return lines[i:], drop
		}
		seen++
	}
	return nil, drop
}

// Scan implements ports.TelemetryAuditor. Results are cached until the file
// changes on disk.
func (f *FileStore) Scan(fingerprint string) (domain.TelemetryScan, error) {
	path, err := f.Path(fingerprint)
	if err != nil {
		return domain.TelemetryScan{}, &domain.StoreError{Op: "read", Err: err}
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.TelemetryScan{}, nil
	}
	if err != nil {
		return domain.TelemetryScan{}, &domain.StoreError{Op: "read", Path: path, Err: err}
	}

	if cached, ok := f.cache.Get(fingerprint); ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		storeScanCache.WithLabelValues("hit").Inc()
		return copyScan(cached.scan), nil
	}
	storeScanCache.WithLabelValues("miss").Inc()

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.TelemetryScan{}, &domain.StoreError{Op: "read", Path: path, Err: err}
	}
	scan := scanLines(splitLines(content))
	for _, c := range scan.Corrupt {
		f.log.Warn("skipping corrupt telemetry record", map[string]interface{}{
			"path":  path,
			"line":  c.Line,
			"error": c.Err.Error(),
		})
	}
	recordCorrupt(storeLabelFile, len(scan.Corrupt))
	f.cache.Add(fingerprint, cachedScan{modTime: info.ModTime(), size: info.Size(), scan: scan})
	return copyScan(scan), nil
}

// History implements ports.TelemetryStore.
func (f *FileStore) History(fingerprint string, limit int) ([]domain.TelemetryRun, error) {
	scan, err := f.Scan(fingerprint)
	if err != nil {
		return nil, err
	}
	return newestFirst(scan.Runs, limit), nil
}

// Latest implements ports.TelemetryStore.
func (f *FileStore) Latest(fingerprint string) (*domain.TelemetryRun, error) {
	runs, err := f.History(fingerprint, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// Fingerprints lists the fingerprints that have a history file.
func (f *FileStore) Fingerprints() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Path: f.dir, Err: err}
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != domain.TelemetryFileExt {
			continue
		}
		fp := name[:len(name)-len(domain.TelemetryFileExt)]
		if validateFingerprint(fp) == nil {
			out = append(out, fp)
		}
	}
	return out, nil
}

func copyScan(scan domain.TelemetryScan) domain.TelemetryScan {
	return domain.TelemetryScan{
		Runs:    append([]domain.TelemetryRun(nil), scan.Runs...),
		Corrupt: append([]domain.CorruptRecord(nil), scan.Corrupt...),
	}
}

var (
	_ ports.TelemetryStore   = (*FileStore)(nil)
	_ ports.TelemetryAuditor = (*FileStore)(nil)
)
