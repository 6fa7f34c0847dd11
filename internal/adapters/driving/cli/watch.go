package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep a folder of PDFs indexed",
	Long: `Ingest every PDF under a directory, then watch it for changes.

New and modified files are ingested once they have been quiet for the
debounce period. Deleting a file deletes its document unless another
watched file has the same content. Hidden files and directories are
ignored.

Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("no-scan", false, "skip the initial ingest of existing files")
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	noScan, _ := cmd.Flags().GetBool("no-scan")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	w := watcher.New(dir, svc.Ingest, svc.Documents, who, watcher.WithDebounce(debounce))
	out := cmd.OutOrStdout()

	if !noScan {
		results, err := w.Scan(cmd.Context())
		for _, r := range results {
			printWatchResult(out, r)
		}
		if err != nil {
			return err
		}
	}

	return watchUntilDone(cmd.Context(), w, out)
}

func watchUntilDone(ctx context.Context, w *watcher.Watcher, out io.Writer) error {
	results := make(chan watcher.Result)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(results)
		return w.Run(ctx, results)
	})
	g.Go(func() error {
		for r := range results {
			printWatchResult(out, r)
		}
		return nil
	})

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", w.Dir())
	return g.Wait()
}

func printWatchResult(out io.Writer, r watcher.Result) {
	ts := time.Now().Format("15:04:05")
	switch {
	case r.Err != nil:
		fmt.Fprintf(out, "%s %s %s: %v\n", ts, r.Change, r.Path, r.Err)
	case r.Ingest != nil && r.Ingest.AlreadyIndexed:
		fmt.Fprintf(out, "%s %s %s: already indexed\n", ts, r.Change, r.Path)
	case r.Ingest != nil:
		fmt.Fprintf(out, "%s %s %s: indexed %d chunks (%s)\n", ts, r.Change, r.Path, r.Ingest.Chunks, shortID(r.DocumentID))
	default:
		fmt.Fprintf(out, "%s %s %s\n", ts, r.Change, r.Path)
	}
}
