package instrument

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/emperator-dev/emperator/internal/domain"
)

// WriteTextfile dumps the default prometheus registry in the node_exporter
// textfile format. The write is atomic.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(path, prometheus.DefaultGatherer)
}

// WriteTextfileFrom is WriteTextfile for an explicit gatherer.
func WriteTextfileFrom(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
