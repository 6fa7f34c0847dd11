package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List indexed documents",
	Long: `List the documents you have ingested.

Documents can be referred to by full ID, by a unique ID prefix or by name.`,
	RunE: runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <document>",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsRmCmd = &cobra.Command{
	Use:     "rm <document>",
	Aliases: []string{"delete"},
	Short:   "Delete a document and its index",
	Args:    cobra.ExactArgs(1),
	RunE:    runDocumentsRm,
}

func init() {
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsRmCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}

	records, err := svc.Documents.List(cmd.Context(), who)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	views := make([]documentView, 0, len(records))
	for _, rec := range records {
		views = append(views, toDocumentView(rec))
	}

	return render(cmd.OutOrStdout(), views, func(w io.Writer) {
		if len(records) == 0 {
			fmt.Fprintln(w, "No documents. Add one with: docqa ingest <file.pdf>")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCHUNKS\tSTATUS")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", shortID(rec.ID), rec.Name, rec.ChunkCount, indexStatus(rec))
		}
		_ = tw.Flush()
	})
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}

	rec, err := resolveDocument(cmd.Context(), svc, who, args[0])
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), toDocumentView(*rec), func(w io.Writer) {
		fmt.Fprintf(w, "ID:      %s\n", rec.ID)
		fmt.Fprintf(w, "Name:    %s\n", rec.Name)
		fmt.Fprintf(w, "Status:  %s\n", indexStatus(*rec))
		fmt.Fprintf(w, "Chunks:  %d\n", rec.ChunkCount)
		fmt.Fprintf(w, "Added:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04"))
	})
}

func runDocumentsRm(cmd *cobra.Command, args []string) error {
	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}

	rec, err := resolveDocument(cmd.Context(), svc, who, args[0])
	if err != nil {
		return err
	}
	if err := svc.Documents.Delete(cmd.Context(), who, rec.ID); err != nil {
		return fmt.Errorf("delete %s: %w", rec.Name, err)
	}

	cmd.Printf("Deleted %s (%s)\n", rec.Name, shortID(rec.ID))
	return nil
}

func documentsContext(ctx context.Context) (*Services, domain.Identity, error) {
	svc, err := core(ctx)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	if svc.Documents == nil {
		return nil, domain.Identity{}, errors.New("document service not configured")
	}
	who, err := owner()
	if err != nil {
		return nil, domain.Identity{}, err
	}
	return svc, who, nil
}

// resolveDocument finds a document by full ID, unique ID prefix or exact name.
func resolveDocument(ctx context.Context, svc *Services, who domain.Identity, ref string) (*domain.DocumentRecord, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}

	rec, err := svc.Documents.Get(ctx, who, ref)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	records, err := svc.Documents.List(ctx, who)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var matches []domain.DocumentRecord
	for _, r := range records {
		if r.Name == ref {
			return &r, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("document %q: %w", ref, domain.ErrNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d documents", domain.ErrInvalidInput, ref, len(matches))
	}
}

func indexStatus(rec domain.DocumentRecord) string {
	if rec.Indexed {
		return "indexed"
	}
	return "pending"
}
