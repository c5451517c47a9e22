package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/dashboard"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/render"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/utils"
)

var (
	pageHighlight string
	pageFormat    string
	pageOutput    string
)

var pageCmd = &cobra.Command{
	Use:       "page <bac|dnb|eaf>",
	Short:     "Render one results page",
	Args:      cobra.ExactArgs(1),
	ValidArgs: dashboard.Pages,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder()
		if err != nil {
			return err
		}
		p, err := b.Build(cmd.Context(), args[0], pageHighlight)
		if err != nil {
			return err
		}
		out, err := render.Render(p, pageFormat)
		if err != nil {
			return err
		}
		if pageOutput == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		}
		if err := utils.SafeWriteFile(pageOutput, out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s page to %s\n", p.ID, pageOutput)
		for _, n := range p.Notes {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠ %s\n", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pageCmd)
	pageCmd.Flags().StringVar(&pageHighlight, "highlight", "", "school to highlight (defaults to the first one)")
	pageCmd.Flags().StringVarP(&pageFormat, "format", "f", render.FormatMarkdown, "output format: markdown|json|yaml|html")
	pageCmd.Flags().StringVarP(&pageOutput, "output", "o", "", "write to file instead of stdout")
}
