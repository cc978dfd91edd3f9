package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctxforge/pkg/config"
	"ctxforge/pkg/discover"
	"ctxforge/pkg/ignore"
	"ctxforge/pkg/snapshot"
)

type snapshotFlags struct {
	run              bool
	dryRun           bool
	force            bool
	output           string
	treeOutput       string
	maxFileMB        int64
	maxTotalMB       int64
	depth            int
	spoolKB          int64
	removeComments   bool
	includeLockfiles bool
	noIgnoreFiles    bool
	excludeExt       []string
	excludeDir       []string
	excludeFile      []string
	globalIgnore     string
	verbose          bool
}

func newSnapshotCmd(logger *zap.Logger) *cobra.Command {
	var flags snapshotFlags

	cmd := &cobra.Command{
		Use:   "snapshot [root]",
		Short: "Generate a snapshot document from a directory tree",
		Long:  `Walks the root directory, filters and size-checks every file, and assembles the admitted content into one Markdown artifact with a table of contents and composition telemetry.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runSnapshot(cmd, root, flags, logger)
		},
	}

	cmd.Flags().BoolVarP(&flags.run, "run", "r", false, "Actually generate the snapshot")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the snapshot to stdout instead of writing a file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Explicit output file path")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite the output file if it exists")
	cmd.Flags().StringVar(&flags.treeOutput, "tree", "", "Also write the rendered directory tree to this file")
	cmd.Flags().Int64Var(&flags.maxFileMB, "max-file-mb", 0, "Maximum size per file in MB; larger files are omitted")
	cmd.Flags().Int64Var(&flags.maxTotalMB, "max-total-mb", 0, "Maximum total size of included content in MB")
	cmd.Flags().IntVar(&flags.depth, "depth", 0, "Maximum directory depth to scan")
	cmd.Flags().Int64Var(&flags.spoolKB, "spool-kb", 0, "In-memory spool threshold in KB before spilling to disk")
	cmd.Flags().BoolVar(&flags.removeComments, "remove-comments", false, "Strip comments from supported file types")
	cmd.Flags().BoolVar(&flags.includeLockfiles, "include-lockfiles", false, "Include dependency lockfiles")
	cmd.Flags().BoolVar(&flags.noIgnoreFiles, "no-ignore-files", false, "Do not honor .ctxforgeignore pattern files")
	cmd.Flags().StringSliceVar(&flags.excludeExt, "exclude-ext", nil, "Additional file extensions to exclude")
	cmd.Flags().StringSliceVar(&flags.excludeDir, "exclude-dir", nil, "Additional directory names to exclude")
	cmd.Flags().StringSliceVar(&flags.excludeFile, "exclude-file", nil, "Additional file names to exclude")
	cmd.Flags().StringVar(&flags.globalIgnore, "global-ignore", "", "Path to a global ignore file")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Always print the full diagnostics summary")

	return cmd
}

func runSnapshot(cmd *cobra.Command, rootArg string, flags snapshotFlags, logger *zap.Logger) error {
	startTime := time.Now()
	stderr := cmd.ErrOrStderr()

	root, err := canonicalRoot(rootArg)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd, root, flags, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !flags.run && !flags.dryRun {
		if err := cmd.Help(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse --run or -r to generate the snapshot, or --dry-run to preview.")
		return nil
	}

	displayRoot := discover.CleanPath(root)
	fmt.Fprintf(stderr, "Scanning: %s\n", displayRoot)

	var matcher *ignore.Matcher
	if cfg.UseIgnoreFiles {
		globalIgnore := flags.globalIgnore
		if globalIgnore == "" {
			globalIgnore = os.Getenv("CTXFORGEIGNORE_GLOBAL")
		}
		matcher, err = ignore.Load(root, globalIgnore, logger)
		if err != nil {
			return fmt.Errorf("failed to load ignore patterns: %w", err)
		}
	}

	discovery := discover.Find(root, cfg, matcher, logger)
	fmt.Fprintf(stderr, "Found:    %d files\n", len(discovery.Files))

	pipeline := snapshot.NewPipeline(root, snapshot.Options{
		MaxFileBytes:   cfg.MaxFileBytes(),
		MaxTotalBytes:  cfg.MaxTotalBytes(),
		SpoolThreshold: cfg.SpoolBytes(),
		RemoveComments: cfg.RemoveComments,
	}, logger)
	defer func() {
		if err := pipeline.Spooler().Close(); err != nil {
			logger.Warn("Failed to release spool backing storage", zap.Error(err))
		}
	}()

	skippedAfterExhaustion := 0
	for i, path := range discovery.Files {
		if pipeline.Exhausted() {
			skippedAfterExhaustion = len(discovery.Files) - i
			logger.Info("Budget exhausted, stopping admission",
				zap.Int("remainingPaths", skippedAfterExhaustion))
			break
		}
		if err := pipeline.Process(path); err != nil {
			return err
		}
	}

	tree, err := discover.Tree(root, cfg, matcher, logger)
	if err != nil {
		logger.Warn("Failed to render directory tree", zap.Error(err))
		tree = ""
	}
	if flags.treeOutput != "" && tree != "" {
		if err := os.WriteFile(flags.treeOutput, []byte(tree), 0o644); err != nil {
			return fmt.Errorf("failed to write tree file %s: %w", flags.treeOutput, err)
		}
	}

	meta := snapshot.Meta{
		Root:                   displayRoot,
		Timestamp:              startTime,
		Tree:                   tree,
		DiscoveryErrors:        discovery.Errors,
		SkippedAfterExhaustion: skippedAfterExhaustion,
	}

	outputPath := ""
	if flags.dryRun {
		if err := pipeline.Assemble(cmd.OutOrStdout(), meta); err != nil {
			return err
		}
	} else {
		outputPath = flags.output
		if outputPath == "" {
			outputPath = filepath.Join(root, fmt.Sprintf("snapshot_%s.md", startTime.Format("20060102_150405")))
		}
		if err := writeArtifact(outputPath, flags.force, pipeline, meta); err != nil {
			return err
		}
		outputPath = discover.CleanPath(outputPath)
	}

	showTables := flags.verbose || isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	report := pipeline.BuildReport(outputPath, len(discovery.Errors), time.Since(startTime), showTables)
	report.Write(stderr)

	logger.Info("Snapshot complete",
		zap.String("root", displayRoot),
		zap.Int("included", report.Included),
		zap.Int("omitted", report.Omitted),
		zap.Int64("bytes", report.TotalBytes),
		zap.Duration("elapsed", report.Elapsed))
	return nil
}

// writeArtifact creates the output file (exclusively unless forced) and
// streams the assembled document into it.
func writeArtifact(path string, force bool, pipeline *snapshot.Pipeline, meta snapshot.Meta) error {
	openFlags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		openFlags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, openFlags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("output file exists: %s (use --force to overwrite)", path)
		}
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	if err := pipeline.Assemble(f, meta); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finalize output file %s: %w", path, err)
	}
	return nil
}

// canonicalRoot resolves and validates the snapshot root.
func canonicalRoot(rootArg string) (string, error) {
	abs, err := filepath.Abs(rootArg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root path %s: %w", rootArg, err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("root path does not exist: %s: %w", rootArg, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("failed to stat root path %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root path is not a directory: %s", root)
	}
	return root, nil
}

// resolveConfig applies the config cascade: defaults, global file, local
// file, then CLI flags (only those explicitly set).
func resolveConfig(cmd *cobra.Command, root string, flags snapshotFlags, logger *zap.Logger) (config.Config, error) {
	cfg, err := config.LoadGlobal(logger)
	if err != nil {
		return config.Config{}, err
	}
	if local, ok, err := config.LoadLocal(root); err != nil {
		return config.Config{}, err
	} else if ok {
		cfg = local
	}

	if cmd.Flags().Changed("max-file-mb") {
		cfg.MaxFileMB = flags.maxFileMB
	}
	if cmd.Flags().Changed("max-total-mb") {
		cfg.MaxTotalMB = flags.maxTotalMB
	}
	if cmd.Flags().Changed("depth") {
		cfg.Depth = flags.depth
	}
	if cmd.Flags().Changed("spool-kb") {
		cfg.SpoolKB = flags.spoolKB
	}
	if flags.removeComments {
		cfg.RemoveComments = true
	}
	if flags.includeLockfiles {
		cfg.IncludeLockfiles = true
	}
	if flags.noIgnoreFiles {
		cfg.UseIgnoreFiles = false
	}
	cfg.ExcludeExt = append(cfg.ExcludeExt, flags.excludeExt...)
	cfg.ExcludeDir = append(cfg.ExcludeDir, flags.excludeDir...)
	cfg.ExcludeFile = append(cfg.ExcludeFile, flags.excludeFile...)

	return cfg, nil
}
