package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration,
// including the built-in analyzer registry.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte
