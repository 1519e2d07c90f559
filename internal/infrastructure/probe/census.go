package probe

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/emperator-dev/emperator/internal/domain"
)

// Languages walks root and classifies files by extension. Directories named
// in the skip list are pruned wherever they appear below root.
func (p *Prober) Languages(ctx context.Context, root string) ([]domain.LanguageProfile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &domain.ProbeError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &domain.ProbeError{Root: root, Err: errors.New("not a directory")}
	}

	counts := map[domain.Language]*domain.LanguageProfile{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			p.log.Debug("skipping unreadable path", map[string]interface{}{"path": path, "error": err.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && p.skip(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		lang, ok := domain.LanguageForPath(d.Name())
		if !ok {
			return nil
		}
		profile, ok := counts[lang]
		if !ok {
			profile = &domain.LanguageProfile{Language: lang}
			counts[lang] = profile
		}
		profile.FileCount++
		if len(profile.Samples) < p.sampleLimit {
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				profile.Samples = append(profile.Samples, filepath.ToSlash(rel))
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, &domain.ProbeError{Root: root, Err: walkErr}
	}

	profiles := make([]domain.LanguageProfile, 0, len(counts))
	for _, profile := range counts {
		profiles = append(profiles, *profile)
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].FileCount != profiles[j].FileCount {
			return profiles[i].FileCount > profiles[j].FileCount
		}
		return profiles[i].Language < profiles[j].Language
	})
	return profiles, nil
}

func (p *Prober) skip(name string) bool {
	_, ok := p.skipDirs[name]
	return ok
}
