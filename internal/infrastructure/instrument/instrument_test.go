package instrument

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitNone(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{Exporter: "jaeger"})
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("expected ErrUnknownExporter, got %v", err)
	}
}

func TestInitStdoutWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{Exporter: ExporterStdout, ServiceName: "emperator-test", Writer: &buf})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestWriteTextfileFrom(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "emperator_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	path := filepath.Join(t.TempDir(), "metrics", "emperator.prom")
	if err := WriteTextfileFrom(path, reg); err != nil {
		t.Fatalf("WriteTextfileFrom: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "emperator_test_total 3") {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}
