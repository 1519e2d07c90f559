package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language identifies a source language detected by extension.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageJava       Language = "java"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageSwift      Language = "swift"
	LanguageKotlin     Language = "kotlin"
	LanguageShell      Language = "shell"
	LanguageMarkdown   Language = "markdown"
	LanguageYAML       Language = "yaml"
	LanguageJSON       Language = "json"
)

var extensionTable = map[string]Language{
	".py":       LanguagePython,
	".pyi":      LanguagePython,
	".js":       LanguageJavaScript,
	".cjs":      LanguageJavaScript,
	".mjs":      LanguageJavaScript,
	".jsx":      LanguageJavaScript,
	".ts":       LanguageTypeScript,
	".tsx":      LanguageTypeScript,
	".go":       LanguageGo,
	".rs":       LanguageRust,
	".java":     LanguageJava,
	".c":        LanguageC,
	".h":        LanguageC,
	".cpp":      LanguageCPP,
	".cc":       LanguageCPP,
	".cxx":      LanguageCPP,
	".hpp":      LanguageCPP,
	".hxx":      LanguageCPP,
	".cs":       LanguageCSharp,
	".rb":       LanguageRuby,
	".php":      LanguagePHP,
	".swift":    LanguageSwift,
	".kt":       LanguageKotlin,
	".kts":      LanguageKotlin,
	".sh":       LanguageShell,
	".bash":     LanguageShell,
	".zsh":      LanguageShell,
	".md":       LanguageMarkdown,
	".markdown": LanguageMarkdown,
	".yaml":     LanguageYAML,
	".yml":      LanguageYAML,
	".json":     LanguageJSON,
}

// LanguageForPath classifies a file name by extension.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extensionTable[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Extensions returns the sorted extensions mapped to lang.
func Extensions(lang Language) []string {
	var exts []string
	for ext, candidate := range extensionTable {
		if candidate == lang {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// LanguageProfile is one entry of the extension census.
type LanguageProfile struct {
	Language  Language `json:"language" yaml:"language"`
	FileCount int      `json:"file_count" yaml:"file_count"`
	Samples   []string `json:"samples,omitempty" yaml:"samples,omitempty"`
}
