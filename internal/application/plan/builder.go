// Package plan turns capability probe output into an ordered, fingerprinted
// list of analyzer invocations.
package plan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emperator-dev/emperator/internal/domain"
)

// Placeholders understood in ToolSpec.Args and ToolSpec.Setup.
const (
	placeholderRoot     = "{root}"
	placeholderLang     = "{lang}"
	placeholderReport   = "{report}"
	placeholderDB       = "{db}"
	placeholderIncludes = "{includes}"
	placeholderExt      = "{ext}"
)

// Builder synthesizes plan steps from the configured tool registry.
type Builder struct {
	tools      []domain.ToolSpec
	reportsDir func(root string) string
	dbDir      func(root string) string
}

// NewBuilder captures the registry and workspace layout from cfg.
func NewBuilder(cfg domain.Config) *Builder {
	return &Builder{
		tools:      append([]domain.ToolSpec(nil), cfg.Tools...),
		reportsDir: cfg.ReportsDirFor,
		dbDir:      cfg.CodeQLDBDirFor,
	}
}

// Tools returns the registry in order.
func (b *Builder) Tools() []domain.ToolSpec {
	return append([]domain.ToolSpec(nil), b.tools...)
}

// Build produces the plan for root. When requested is non-empty, tools not
// named in it are left out of the plan entirely.
func (b *Builder) Build(root string, languages []domain.LanguageProfile, availability []domain.ToolAvailability, requested []string) domain.AnalysisPlan {
	wanted := toSet(requested)
	status := make(map[string]domain.ToolAvailability, len(availability))
	for _, a := range availability {
		status[a.Tool] = a
	}
	counts := make(map[domain.Language]int, len(languages))
	for _, profile := range languages {
		counts[profile.Language] = profile.FileCount
	}

	plan := domain.AnalysisPlan{
		Root:      root,
		Languages: append([]domain.LanguageProfile(nil), languages...),
		Tools:     append([]domain.ToolAvailability(nil), availability...),
	}

	for _, tool := range b.tools {
		if len(wanted) > 0 && !wanted[tool.ID] {
			continue
		}
		avail, probed := status[tool.ID]
		for _, group := range groupLanguages(tool, counts) {
			step := b.stepFor(root, tool, group)
			step.Ready = probed && avail.Installed && step.Files > 0
			if !step.Ready {
				step.Reason = unreadyReason(tool, avail, probed, step.Files)
			}
			plan.Steps = append(plan.Steps, step)
		}
	}

	plan.Hints = buildHints(b.tools, wanted, plan)
	return plan
}

type languageGroup struct {
	key       string
	languages []domain.Language
	files     int
}

// groupLanguages collapses detected languages sharing a step key, keeping
// the tool's declared language order.
func groupLanguages(tool domain.ToolSpec, counts map[domain.Language]int) []languageGroup {
	var groups []languageGroup
	index := map[string]int{}
	for _, lang := range tool.Languages {
		n := counts[lang]
		if n == 0 {
			continue
		}
		key := tool.StepKey(lang)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, languageGroup{key: key})
		}
		groups[i].languages = append(groups[i].languages, lang)
		groups[i].files += n
	}
	return groups
}

func (b *Builder) stepFor(root string, tool domain.ToolSpec, group languageGroup) domain.PlanStep {
	var reportPath string
	if tool.Report == domain.ReportSARIFFile {
		reportPath = filepath.Join(b.reportsDir(root), fmt.Sprintf("%s-%s.sarif", tool.ID, group.key))
	}
	vars := strings.NewReplacer(
		placeholderRoot, root,
		placeholderLang, group.key,
		placeholderDB, filepath.Join(b.dbDir(root), group.key),
		placeholderReport, reportPath,
	)
	includes := includeArgs(tool.IncludePattern, group.languages)

	argv := append([]string{tool.Binary}, expand(tool.Args, vars, includes)...)
	var setup [][]string
	for _, cmd := range tool.Setup {
		setup = append(setup, expand(cmd, vars, includes))
	}

	report := tool.Report
	if report == "" {
		report = domain.ReportNone
	}
	return domain.PlanStep{
		Tool:         tool.ID,
		Language:     domain.Language(group.key),
		Argv:         argv,
		Setup:        setup,
		Rationale:    rationale(tool, group),
		Files:        group.files,
		Report:       report,
		ReportPath:   reportPath,
		ExitSeverity: tool.ExitSeverity,
	}
}

func expand(args []string, vars *strings.Replacer, includes []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == placeholderIncludes {
			out = append(out, includes...)
			continue
		}
		out = append(out, vars.Replace(arg))
	}
	return out
}

func includeArgs(pattern string, languages []domain.Language) []string {
	if pattern == "" {
		return nil
	}
	seen := map[string]bool{}
	var exts []string
	for _, lang := range languages {
		for _, ext := range domain.Extensions(lang) {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	sort.Strings(exts)
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, strings.ReplaceAll(pattern, placeholderExt, ext))
	}
	return out
}

func rationale(tool domain.ToolSpec, group languageGroup) string {
	base := tool.Rationale
	if base == "" {
		base = fmt.Sprintf("Run %s", tool.ID)
	}
	names := make([]string, 0, len(group.languages))
	for _, lang := range group.languages {
		names = append(names, string(lang))
	}
	return fmt.Sprintf("%s over %d %s file(s)", base, group.files, strings.Join(names, "/"))
}

func unreadyReason(tool domain.ToolSpec, avail domain.ToolAvailability, probed bool, files int) string {
	switch {
	case files == 0:
		return "no applicable files detected"
	case !probed:
		return fmt.Sprintf("%s was not probed", tool.ID)
	case avail.Reason != "":
		return avail.Reason
	default:
		return fmt.Sprintf("%s is not installed", tool.ID)
	}
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			set[v] = true
		}
	}
	return set
}
