package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/emperator-dev/emperator/internal/app"
)

// Session carries the global flags and builds the container on first use,
// after cobra has parsed them.
type Session struct {
	Options   app.Options
	container *app.Container
}

// Container returns the lazily built container.
func (s *Session) Container(ctx context.Context) (*app.Container, error) {
	if s.container != nil {
		return s.container, nil
	}
	c, err := app.BuildContainer(ctx, s.Options)
	if err != nil {
		return nil, err
	}
	s.container = c
	return c, nil
}

// ExitError carries a process exit code out of RunE. A nil Err means the
// command already reported everything it had to say.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--meta expects key=value, got %q", pair)
		}
		meta[key] = value
	}
	return meta, nil
}

func checkFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("--format must be table|json|yaml, got %q", format)
	}
}

func writeStructured(out io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
