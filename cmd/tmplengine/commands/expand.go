package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgecompose/tmplengine/internal/expand"
	"github.com/edgecompose/tmplengine/internal/plugin"
	"github.com/edgecompose/tmplengine/internal/store"
	"github.com/edgecompose/tmplengine/internal/telemetry"
)

func newExpandCommand() *cobra.Command {
	var (
		recipeDir    string
		artifactsDir string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand every template's parameter files into fully-specified recipes",
		Long: `expand scans recipeDir, pairs every parameter file with its declared
template, runs the template's transformer, and writes the resulting
recipes back into recipeDir.`,
		Example: `  tmplengine expand --recipes ./recipes --artifacts ./artifacts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := telemetry.DefaultConfig()
			if verbose {
				cfg.Logging.Level = "debug"
			}
			logger, err := telemetry.NewLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to construct logger: %w", err)
			}
			metrics := telemetry.NewMetrics(cfg.Metrics)

			if metricsAddr != "" {
				go func() {
					log.Info().Str("addr", metricsAddr).Msg("serving metrics")
					if err := serveMetrics(metricsAddr, metrics); err != nil {
						log.Error().Err(err).Msg("metrics server failed")
					}
				}()
			}

			gateway := store.New(recipeDir, artifactsDir)
			host := plugin.NewHost(plugin.Config{})
			driver := expand.New(gateway, host, logger, metrics)

			result, err := driver.Process(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("expanded %d recipe(s)\n", len(result.Expanded))
			for _, id := range result.Expanded {
				fmt.Printf("  %s\n", id.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recipeDir, "recipes", "", "directory of recipe documents")
	cmd.Flags().StringVar(&artifactsDir, "artifacts", "", "directory of transformer artifacts")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve prometheus metrics on this address")
	cmd.MarkFlagRequired("recipes")
	cmd.MarkFlagRequired("artifacts")

	return cmd
}
