// Package config resolves the ctxforge configuration cascade: built-in
// defaults, then an optional global ctxforge.toml next to the executable,
// then an optional local ctxforge.toml in the snapshot root, then CLI flag
// overrides applied by the command layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// FileName is the name of both the global and the local config file.
const FileName = "ctxforge.toml"

// Config holds every tunable of a snapshot run.
type Config struct {
	ExcludeExt       []string `toml:"exclude_ext"`       // Extensions skipped during discovery (no leading dot).
	ExcludeDir       []string `toml:"exclude_dir"`       // Directory names pruned during discovery.
	ExcludeFile      []string `toml:"exclude_file"`      // Exact file names skipped during discovery.
	MaxFileMB        int64    `toml:"max_file_mb"`       // Per-file ceiling; larger files are omitted.
	MaxTotalMB       int64    `toml:"max_total_mb"`      // Cumulative ceiling for included content.
	UseIgnoreFiles   bool     `toml:"use_ignore_files"`  // Honor .ctxforgeignore pattern files.
	IncludeLockfiles bool     `toml:"include_lockfiles"` // Include dependency lockfiles.
	RemoveComments   bool     `toml:"remove_comments"`   // Strip comments from supported file types.
	Depth            int      `toml:"depth"`             // Maximum directory depth to scan.
	SpoolKB          int64    `toml:"spool_kb"`          // In-memory spool threshold before spilling to disk.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ExcludeExt: []string{
			"exe", "dll", "so", "dylib", "jpg", "jpeg", "png", "gif", "svg", "webp", "ico",
			"zip", "tar", "gz", "7z", "rar", "pdf", "db", "sqlite", "sqlite3", "pyc", "pem",
			"key",
		},
		ExcludeDir: []string{
			".git", "node_modules", "target", "dist", "build", ".venv", "venv", ".idea", ".vscode",
		},
		ExcludeFile:      []string{".DS_Store", "Thumbs.db", ".gitignore", ".gitattributes", ".ctxforgeignore"},
		MaxFileMB:        10,
		MaxTotalMB:       200,
		UseIgnoreFiles:   true,
		IncludeLockfiles: false,
		RemoveComments:   false,
		Depth:            50,
		SpoolKB:          2048,
	}
}

// LoadGlobal loads the global config from next to the executable, creating
// it with defaults on first run. A corrupt or unreadable global config is
// self-healing: a warning is logged and defaults are returned, never an
// error, so a damaged install cannot block snapshot runs.
func LoadGlobal(logger *zap.Logger) (Config, error) {
	exePath, err := os.Executable()
	if err != nil {
		return Config{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	globalPath := filepath.Join(filepath.Dir(exePath), FileName)

	if _, statErr := os.Stat(globalPath); statErr != nil {
		if !os.IsNotExist(statErr) {
			return Config{}, fmt.Errorf("failed to stat global config %s: %w", globalPath, statErr)
		}
		cfg := Default()
		// Best effort write; a read-only install directory is fine.
		if err := cfg.write(globalPath); err != nil {
			logger.Debug("Could not seed global config", zap.String("path", globalPath), zap.Error(err))
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(globalPath, &cfg); err != nil {
		logger.Warn("Global config is corrupted, falling back to defaults",
			zap.String("path", globalPath),
			zap.Error(err))
		return Default(), nil
	}
	return cfg, nil
}

// LoadLocal loads the config from the snapshot root. The boolean reports
// whether a local config file was present. Unlike the global config, a
// corrupt local config is a hard error: the user wrote it deliberately.
func LoadLocal(root string) (Config, bool, error) {
	localPath := filepath.Join(root, FileName)

	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("failed to stat local config %s: %w", localPath, err)
	}

	var cfg Config
	if _, err := toml.DecodeFile(localPath, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("local config %s is corrupted: %w", localPath, err)
	}
	return cfg, true, nil
}

// SaveLocal writes the config to the snapshot root.
func (c Config) SaveLocal(root string) error {
	localPath := filepath.Join(root, FileName)
	if err := c.write(localPath); err != nil {
		return fmt.Errorf("failed to write local config %s: %w", localPath, err)
	}
	return nil
}

func (c Config) write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate checks the resolved configuration before any file processing
// begins. Violations are fatal per the error taxonomy.
func (c Config) Validate() error {
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be positive, got %d", c.MaxFileMB)
	}
	if c.MaxFileMB > 1024 {
		return fmt.Errorf("max_file_mb cannot exceed 1024 (1 GB), got %d", c.MaxFileMB)
	}
	if c.MaxTotalMB <= 0 {
		return fmt.Errorf("max_total_mb must be positive, got %d", c.MaxTotalMB)
	}
	if c.MaxTotalMB > 10240 {
		return fmt.Errorf("max_total_mb cannot exceed 10240 (10 GB), got %d", c.MaxTotalMB)
	}
	if c.Depth <= 0 || c.Depth >= 1000 {
		return fmt.Errorf("depth must be between 1 and 999, got %d", c.Depth)
	}
	if c.SpoolKB <= 0 {
		return fmt.Errorf("spool_kb must be positive, got %d", c.SpoolKB)
	}
	return nil
}

// MaxFileBytes returns the per-file ceiling in bytes.
func (c Config) MaxFileBytes() int64 {
	return c.MaxFileMB * 1024 * 1024
}

// MaxTotalBytes returns the cumulative ceiling in bytes.
func (c Config) MaxTotalBytes() int64 {
	return c.MaxTotalMB * 1024 * 1024
}

// SpoolBytes returns the in-memory spool threshold in bytes.
func (c Config) SpoolBytes() int64 {
	return c.SpoolKB * 1024
}
