package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ctxforge/pkg/config"
	"ctxforge/pkg/ignore"
)

// Tree renders a box-drawing directory tree of the snapshot root, honoring
// the same exclusion rules as Find so the tree and the table of contents
// describe the same view of the repository.
func Tree(root string, cfg config.Config, matcher *ignore.Matcher, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := newRuleset(cfg, matcher)

	var b strings.Builder
	b.WriteString(CleanPath(root) + "/\n")

	if err := renderTree(&b, root, root, rules, "", 1, logger); err != nil {
		return "", err
	}
	return b.String(), nil
}

// renderTree walks one directory level, directories first, names sorted
// case-insensitively.
func renderTree(b *strings.Builder, dir, root string, rules *ruleset, prefix string, depth int, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	// Filter first so connectors are assigned to visible entries only.
	visible := entries[:0:0]
	for _, entry := range entries {
		rel := relSlash(root, filepath.Join(dir, entry.Name()))
		if entry.IsDir() {
			if rules.skipDir(entry.Name(), rel) || depth >= rules.maxDepth {
				continue
			}
		} else {
			if entry.Type()&os.ModeSymlink != 0 || rules.skipFile(entry.Name(), rel) {
				continue
			}
		}
		visible = append(visible, entry)
	}

	for i, entry := range visible {
		connector, extension := "├── ", "│   "
		if i == len(visible)-1 {
			connector, extension = "└── ", "    "
		}

		if entry.IsDir() {
			fmt.Fprintf(b, "%s%s%s/\n", prefix, connector, entry.Name())
			sub := filepath.Join(dir, entry.Name())
			if err := renderTree(b, sub, root, rules, prefix+extension, depth+1, logger); err != nil {
				logger.Warn("Failed to render subtree", zap.String("directory", sub), zap.Error(err))
			}
		} else {
			fmt.Fprintf(b, "%s%s%s\n", prefix, connector, entry.Name())
		}
	}
	return nil
}
