package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/dashboard"
)

var schoolsCmd = &cobra.Command{
	Use:       "schools <bac|dnb|eaf>",
	Short:     "List the schools that can be highlighted on a page",
	Args:      cobra.ExactArgs(1),
	ValidArgs: dashboard.Pages,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder()
		if err != nil {
			return err
		}
		names, err := b.Schools(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no schools)")
			return nil
		}
		for _, n := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schoolsCmd)
}
