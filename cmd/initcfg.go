package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctxforge/pkg/config"
	"ctxforge/pkg/discover"
)

func newInitCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init [root]",
		Short: "Write a local ctxforge.toml into the root directory",
		Long:  `Resolves the current configuration (defaults plus the global config) and writes it as a local ctxforge.toml, which takes precedence on subsequent runs.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := canonicalRoot(root)
			if err != nil {
				return err
			}

			cfg, err := config.LoadGlobal(logger)
			if err != nil {
				return err
			}
			if local, ok, err := config.LoadLocal(root); err != nil {
				return err
			} else if ok {
				cfg = local
			}

			if err := cfg.SaveLocal(root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Initialized local config: %s\n",
				discover.CleanPath(filepath.Join(root, config.FileName)))
			return nil
		},
	}
}
