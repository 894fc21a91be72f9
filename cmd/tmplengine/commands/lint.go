package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgecompose/tmplengine/internal/policy"
	"github.com/edgecompose/tmplengine/internal/store"
)

func newLintCommand() *cobra.Command {
	var recipeDir string

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check every recipe in a directory against the built-in policy set",
		Long: `lint evaluates the engine's built-in Rego policies against every recipe
under recipeDir without expanding anything. It exits non-zero if any
policy reports a violation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway := store.New(recipeDir, recipeDir)
			entries, err := gateway.ListRecipes()
			if err != nil {
				return err
			}

			linter, err := policy.New(cmd.Context(), policy.BuiltinPolicies())
			if err != nil {
				return err
			}

			var total int
			for _, entry := range entries {
				violations, err := linter.Check(cmd.Context(), entry.Recipe)
				if err != nil {
					return err
				}
				for _, v := range violations {
					fmt.Printf("%s: [%s] %s\n", v.Resource, v.Policy, v.Message)
					total++
				}
			}

			if total > 0 {
				return fmt.Errorf("%d policy violation(s) found", total)
			}
			fmt.Println("no policy violations found")
			return nil
		},
	}

	cmd.Flags().StringVar(&recipeDir, "recipes", "", "directory of recipe documents to lint")
	cmd.MarkFlagRequired("recipes")

	return cmd
}
