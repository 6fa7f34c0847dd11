package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <document>",
	Short: "Summarise a document",
	Long: `Show the overview and suggested questions for a document.

The summary is generated on first use and cached. Use --regenerate to
replace it, or --show to print the cached summary without generating.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().Bool("regenerate", false, "generate a new summary even if one is cached")
	summaryCmd.Flags().Bool("show", false, "only print the cached summary")
	summaryCmd.MarkFlagsMutuallyExclusive("regenerate", "show")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	regenerate, _ := cmd.Flags().GetBool("regenerate")
	show, _ := cmd.Flags().GetBool("show")

	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Summaries == nil {
		return errors.New("summary service not configured")
	}

	rec, err := resolveDocument(cmd.Context(), svc, who, args[0])
	if err != nil {
		return err
	}

	var summary *domain.Summary
	if show {
		summary, err = svc.Summaries.Get(cmd.Context(), who, rec.ID)
		if err != nil {
			return fmt.Errorf("no summary for %s: %w", rec.Name, err)
		}
	} else {
		summary, err = svc.Summaries.Summarize(cmd.Context(), who, rec.ID, regenerate)
		if err != nil {
			return fmt.Errorf("summarise %s: %w", rec.Name, err)
		}
	}

	return render(cmd.OutOrStdout(), toSummaryView(summary), func(w io.Writer) {
		fmt.Fprintf(w, "%s (version %d)\n\n", rec.Name, summary.Version)
		fmt.Fprintln(w, summary.Overview)
		if len(summary.SuggestedQuestions) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Suggested questions:")
			for _, q := range summary.SuggestedQuestions {
				fmt.Fprintf(w, "  - %s\n", q)
			}
		}
	})
}
