// Package discover walks the snapshot root and yields the ordered list of
// candidate file paths, already pruned of ignored directories and files.
// The processing pipeline performs no ignore-rule evaluation of its own.
package discover

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ctxforge/pkg/config"
	"ctxforge/pkg/ignore"
)

// Result holds discovered absolute file paths (sorted deterministically by
// their cleaned relative path) and any access errors encountered. Access
// errors are collected, not fatal.
type Result struct {
	Files  []string
	Errors []string
}

// snapshotOutputPattern matches artifacts produced by previous runs so a
// snapshot never swallows its own output.
var snapshotOutputPattern = regexp.MustCompile(`^snapshot_\d{8}_\d{6}\.md$`)

// sensitiveDirs are pruned unconditionally, independent of configuration.
var sensitiveDirs = map[string]struct{}{
	".git": {}, ".ssh": {}, ".aws": {}, ".gnupg": {}, ".kube": {},
	".cargo": {}, ".rustup": {},
}

// lockfileNames are dependency lockfiles, skipped unless force-included.
var lockfileNames = map[string]struct{}{
	"cargo.lock":        {},
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"gemfile.lock":      {},
	"poetry.lock":       {},
}

// ruleset is the compiled exclusion rules shared by Find and Tree.
type ruleset struct {
	excludeDirs      map[string]struct{}
	excludeFiles     map[string]struct{}
	excludeExts      map[string]struct{}
	includeLockfiles bool
	maxDepth         int
	matcher          *ignore.Matcher
}

func newRuleset(cfg config.Config, matcher *ignore.Matcher) *ruleset {
	r := &ruleset{
		excludeDirs:      lowerSet(cfg.ExcludeDir),
		excludeFiles:     lowerSet(cfg.ExcludeFile),
		excludeExts:      lowerSet(cfg.ExcludeExt),
		includeLockfiles: cfg.IncludeLockfiles,
		maxDepth:         cfg.Depth,
		matcher:          matcher,
	}
	return r
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = struct{}{}
	}
	return set
}

// skipDir decides whether a directory (root-relative path, forward slashes)
// is pruned.
func (r *ruleset) skipDir(name, rel string) bool {
	lower := strings.ToLower(name)
	if _, ok := sensitiveDirs[lower]; ok {
		return true
	}
	if _, ok := r.excludeDirs[lower]; ok {
		return true
	}
	if r.matcher != nil && r.matcher.MatchesPath(rel+"/") {
		return true
	}
	return false
}

// skipFile decides whether a file is excluded from discovery.
func (r *ruleset) skipFile(name, rel string) bool {
	lower := strings.ToLower(name)

	// Snapshot outputs and our own config are never candidates.
	if snapshotOutputPattern.MatchString(name) || lower == config.FileName {
		return true
	}
	if _, ok := lockfileNames[lower]; ok && !r.includeLockfiles {
		return true
	}
	if _, ok := r.excludeFiles[lower]; ok {
		return true
	}
	// Secret env files, unless clearly a template.
	if strings.HasPrefix(lower, ".env") &&
		!strings.HasSuffix(lower, ".example") &&
		!strings.HasSuffix(lower, ".sample") &&
		!strings.HasSuffix(lower, ".template") &&
		lower != ".envrc" {
		return true
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")); ext != "" {
		if _, ok := r.excludeExts[ext]; ok {
			return true
		}
	}
	if r.matcher != nil && r.matcher.MatchesPath(rel) {
		return true
	}
	return false
}

// Find walks root and collects candidate files. The root must be an
// absolute, canonicalized path. Symlinks are never followed.
func Find(root string, cfg config.Config, matcher *ignore.Matcher, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := newRuleset(cfg, matcher)

	var result Result
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Error accessing path during discovery", zap.String("path", path), zap.Error(err))
			result.Errors = append(result.Errors, err.Error())
			return nil
		}
		if path == root {
			return nil
		}

		rel := relSlash(root, path)

		if d.IsDir() {
			if rules.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			if pathDepth(rel) >= rules.maxDepth {
				logger.Debug("Depth limit reached, pruning", zap.String("path", rel))
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if rules.skipFile(d.Name(), rel) {
			logger.Debug("Skipping excluded file", zap.String("path", rel))
			return nil
		}

		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		// WalkDir only fails outright when the root itself is unreadable.
		result.Errors = append(result.Errors, err.Error())
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return relSlash(root, result.Files[i]) < relSlash(root, result.Files[j])
	})

	logger.Debug("Discovery complete",
		zap.Int("files", len(result.Files)),
		zap.Int("errors", len(result.Errors)))
	return result
}

// relSlash computes the root-relative forward-slash path.
func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return CleanPath(rel)
}

// CleanPath strips the Windows extended-length prefix and normalizes
// separators to forward slashes.
func CleanPath(p string) string {
	p = strings.TrimPrefix(p, `\\?\`)
	return strings.ReplaceAll(p, `\`, "/")
}

// pathDepth counts the components of a relative forward-slash path.
func pathDepth(rel string) int {
	if rel == "" || rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
