package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/dashboard"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/render"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/utils"
)

var (
	reportHighlight string
	reportFormat    string
	reportOutDir    string
	reportQuiet     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render every page into a directory, with progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(reportFormat)
		if err != nil {
			return err
		}
		b, err := newBuilder()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		total := len(dashboard.Pages)
		for i, id := range dashboard.Pages {
			if !reportQuiet {
				fmt.Fprintf(out, "[%d/%d] Building %s...\n", i+1, total, id)
			}
			p, err := b.Build(cmd.Context(), id, reportHighlight)
			if err != nil {
				return err
			}
			body, err := render.Render(p, format)
			if err != nil {
				return err
			}
			name := id
			if p.Highlight != "" {
				name += "__" + utils.Slug(p.Highlight)
			}
			path := filepath.Join(reportOutDir, name+render.Extension(format))
			if err := utils.SafeWriteFile(path, body); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			if reportQuiet {
				continue
			}
			for _, n := range p.Notes {
				fmt.Fprintf(out, "⚠ %s\n", n)
			}
			fmt.Fprintf(out, "✓ %s (%d charts) -> %s\n", p.Title, len(p.Charts), path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportHighlight, "highlight", "", "school to highlight on every page")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", render.FormatMarkdown, "output format: markdown|json|yaml|html")
	reportCmd.Flags().StringVar(&reportOutDir, "out-dir", "reports", "directory for the rendered pages")
	reportCmd.Flags().BoolVar(&reportQuiet, "quiet", false, "suppress progress output")
}
