package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/emperator-dev/emperator/internal/domain"
)

type fingerprintLanguage struct {
	Language domain.Language `json:"language"`
	Files    int             `json:"files"`
}

type fingerprintTool struct {
	Tool      string `json:"tool"`
	Installed bool   `json:"installed"`
}

type fingerprintStep struct {
	Tool     string          `json:"tool"`
	Language domain.Language `json:"language"`
	Argv     []string        `json:"argv"`
	Setup    [][]string      `json:"setup,omitempty"`
}

type fingerprintPayload struct {
	Languages []fingerprintLanguage `json:"languages"`
	Tools     []fingerprintTool     `json:"tools"`
	Steps     []fingerprintStep     `json:"steps"`
	Metadata  [][2]string           `json:"metadata"`
}

// Fingerprint hashes the shape of a plan into 64 hex characters.
//
// Sample paths and tool versions are deliberately left out; callers that
// want version-sensitive keys pass the versions through extra.
func Fingerprint(p domain.AnalysisPlan, extra map[string]string) string {
	payload := fingerprintPayload{
		Languages: make([]fingerprintLanguage, 0, len(p.Languages)),
		Tools:     make([]fingerprintTool, 0, len(p.Tools)),
		Steps:     make([]fingerprintStep, 0, len(p.Steps)),
		Metadata:  make([][2]string, 0, len(extra)),
	}
	for _, profile := range p.Languages {
		payload.Languages = append(payload.Languages, fingerprintLanguage{Language: profile.Language, Files: profile.FileCount})
	}
	for _, tool := range p.Tools {
		payload.Tools = append(payload.Tools, fingerprintTool{Tool: tool.Tool, Installed: tool.Installed})
	}
	for _, step := range p.Steps {
		payload.Steps = append(payload.Steps, fingerprintStep{
			Tool:     step.Tool,
			Language: step.Language,
			Argv:     step.Argv,
			Setup:    step.Setup,
		})
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		payload.Metadata = append(payload.Metadata, [2]string{k, extra[k]})
	}

	// Marshalling plain structs, slices and strings cannot fail.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
