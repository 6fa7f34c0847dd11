package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>...",
	Short: "Index PDF documents",
	Long: `Extract, chunk and embed PDF documents so they can be queried.

Ingesting a file whose content is already indexed is a no-op unless
--force is given.

Examples:
  docqa ingest handbook.pdf
  docqa ingest --force reports/*.pdf
  docqa ingest --name "Staff Handbook" handbook.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("force", false, "rebuild the index even if it exists")
	ingestCmd.Flags().String("name", "", "display name (single file only)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	name, _ := cmd.Flags().GetString("name")
	if name != "" && len(args) > 1 {
		return fmt.Errorf("%w: --name needs exactly one file", domain.ErrInvalidInput)
	}

	svc, err := core(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}
	who, err := owner()
	if err != nil {
		return err
	}

	var (
		results []ingestView
		failed  int
	)
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		display := name
		if display == "" {
			display = filepath.Base(path)
		}

		res, err := svc.Ingest.Ingest(cmd.Context(), domain.IngestRequest{
			Owner: who,
			Name:  display,
			Data:  data,
			Force: force,
		})
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		results = append(results, ingestView{
			ID:             res.DocumentID,
			Name:           res.Name,
			Chunks:         res.Chunks,
			AlreadyIndexed: res.AlreadyIndexed,
		})
	}

	if err := render(cmd.OutOrStdout(), results, func(w io.Writer) {
		for _, r := range results {
			if r.AlreadyIndexed {
				fmt.Fprintf(w, "%s already indexed (%s, %d chunks)\n", r.Name, shortID(r.ID), r.Chunks)
				continue
			}
			fmt.Fprintf(w, "Indexed %s (%s, %d chunks)\n", r.Name, shortID(r.ID), r.Chunks)
		}
	}); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
