package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Execute builds the root command with all subcommands and runs it.
func Execute(logger *zap.Logger) error {
	root := &cobra.Command{
		Use:           "ctxforge",
		Short:         "ctxforge consolidates a directory tree into one bounded snapshot document",
		Long:          `ctxforge walks a project directory and merges its source files into a single ordered Markdown document under strict size ceilings, for consumption by size-limited text consumers such as LLM context windows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSnapshotCmd(logger))
	root.AddCommand(newInitCmd(logger))
	root.AddCommand(newVersionCmd())

	return root.Execute()
}
