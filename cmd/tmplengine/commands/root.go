package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit string) error {
	rootCmd := newRootCommand(version, commit)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tmplengine",
		Short: "Recipe template expansion engine",
		Long: `tmplengine expands template recipes against parameter files.

A template recipe ships a transformer plugin and declares a parameter
schema. A parameter file names a template and supplies concrete values.
tmplengine pairs each parameter file with its template, runs the
transformer, and writes the resulting fully-specified recipes back into
the component store.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newExpandCommand())
	rootCmd.AddCommand(newLintCommand())

	return rootCmd
}
