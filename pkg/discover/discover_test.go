package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ctxforge/pkg/config"
	"ctxforge/pkg/ignore"
)

func writeFile(t *testing.T, root, name string, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, relSlash(root, f))
	}
	return out
}

func TestFindBasicExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "src/lib.go", "package src\n")
	writeFile(t, root, "node_modules/x.js", "junk")
	writeFile(t, root, ".git/config", "junk")
	writeFile(t, root, "logo.png", "junk")
	writeFile(t, root, ".DS_Store", "junk")
	writeFile(t, root, "package-lock.json", "{}")
	writeFile(t, root, ".env", "SECRET=1")
	writeFile(t, root, ".env.example", "SECRET=")
	writeFile(t, root, "ctxforge.toml", "depth = 3")

	result := Find(root, config.Default(), nil, zap.NewNop())

	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{".env.example", "main.go", "src/lib.go"},
		relPaths(t, root, result.Files))
}

func TestFindLockfilesForceIncluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package-lock.json", "{}")
	writeFile(t, root, "yarn.lock", "")

	cfg := config.Default()
	cfg.IncludeLockfiles = true

	result := Find(root, cfg, nil, zap.NewNop())
	assert.Equal(t, []string{"package-lock.json", "yarn.lock"},
		relPaths(t, root, result.Files))
}

func TestFindSkipsPreviousSnapshots(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "snapshot_20260830_120000.md", "old run")
	writeFile(t, root, "snapshot.md", "not an artifact name")

	result := Find(root, config.Default(), nil, zap.NewNop())
	assert.Equal(t, []string{"snapshot.md"}, relPaths(t, root, result.Files))
}

func TestFindDepthLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.txt", "a")
	writeFile(t, root, "one/mid.txt", "b")
	writeFile(t, root, "one/two/deep.txt", "c")

	cfg := config.Default()
	cfg.Depth = 2

	result := Find(root, cfg, nil, zap.NewNop())
	assert.Equal(t, []string{"one/mid.txt", "top.txt"}, relPaths(t, root, result.Files))
}

func TestFindWithIgnoreMatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "a")
	writeFile(t, root, "skip.log", "b")
	writeFile(t, root, "out/gen.txt", "c")
	writeFile(t, root, ".ctxforgeignore", "*.log\nout/\n")

	matcher, err := ignore.Load(root, "", zap.NewNop())
	require.NoError(t, err)

	result := Find(root, config.Default(), matcher, zap.NewNop())
	assert.Equal(t, []string{"keep.txt"}, relPaths(t, root, result.Files))
}

func TestFindDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"z.txt", "a.txt", "m/q.txt", "m/b.txt"} {
		writeFile(t, root, name, "x")
	}

	first := Find(root, config.Default(), nil, zap.NewNop())
	second := Find(root, config.Default(), nil, zap.NewNop())

	assert.Equal(t, []string{"a.txt", "m/b.txt", "m/q.txt", "z.txt"},
		relPaths(t, root, first.Files))
	assert.Equal(t, first.Files, second.Files)
}

func TestFindCaseInsensitiveExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "photo.PNG", "x")
	writeFile(t, root, "NODE_MODULES/y.js", "x")

	result := Find(root, config.Default(), nil, zap.NewNop())
	assert.Empty(t, relPaths(t, root, result.Files))
}

func TestTreeRendersVisibleEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "src/lib.go", "package src\n")
	writeFile(t, root, "node_modules/x.js", "junk")

	tree, err := Tree(root, config.Default(), nil, zap.NewNop())
	require.NoError(t, err)

	assert.Contains(t, tree, "src/")
	assert.Contains(t, tree, "lib.go")
	assert.Contains(t, tree, "main.go")
	assert.NotContains(t, tree, "node_modules")
}

func TestPathDepth(t *testing.T) {
	assert.Equal(t, 0, pathDepth("."))
	assert.Equal(t, 0, pathDepth(""))
	assert.Equal(t, 1, pathDepth("a"))
	assert.Equal(t, 2, pathDepth("a/b"))
	assert.Equal(t, 3, pathDepth("a/b/c"))
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "C:/code/x", CleanPath(`\\?\C:\code\x`))
	assert.Equal(t, "a/b", CleanPath(`a\b`))
	assert.Equal(t, "a/b", CleanPath("a/b"))
}
