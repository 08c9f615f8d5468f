package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

var (
	ingestDryRun      bool
	ingestClear       bool
	ingestIncremental bool
	ingestFile        string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the data directory into the vector index",
	Long: `Discovers Markdown, text and PDF files in the data directory, splits them
into chunks, embeds the chunks and writes them to the vector index.

With --incremental only files whose content changed since the last run are
processed. --clear removes a file's existing vectors before writing the new
ones. --dry-run stops after chunking and calls no external service.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "load and chunk only, without embedding or writing")
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "delete existing vectors of each processed file first")
	ingestCmd.Flags().BoolVar(&ingestIncremental, "incremental", false, "only process files whose content changed")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "restrict the run to this filename")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	needs := domain.NeedEmbedding | domain.NeedIndex
	if ingestDryRun {
		needs = 0
	}

	svc, cfg, err := openServices(cmd, needs)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	if ingestDryRun {
		cmd.Println("Dry run: nothing will be embedded or written.")
	}
	cmd.Printf("Scanning %s\n", cfg.DataDir)

	report, err := svc.Ingest.Ingest(cmd.Context(), domain.IngestOptions{
		DryRun:      ingestDryRun,
		Clear:       ingestClear,
		Incremental: ingestIncremental,
		File:        ingestFile,
		Progress:    ingestProgress(cmd),
	})
	if err != nil {
		var batchErr *domain.BatchError
		if errors.As(err, &batchErr) {
			cmd.Printf("\nBatch %d failed after %d of %d chunks were written. Tracking was not updated;\n",
				batchErr.Batch, batchErr.Completed, batchErr.Total)
			cmd.Println("re-run the same command to retry.")
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	printIngestSummary(cmd, report, cfg.DataDir)
	return nil
}

// ingestProgress prints the per-file plan, chunk counts and batch progress.
func ingestProgress(cmd *cobra.Command) func(domain.IngestEvent) {
	return func(ev domain.IngestEvent) {
		switch ev.Stage {
		case domain.StagePlanned:
			label := "New"
			if ev.File.Status == domain.FileStatusUpdated {
				label = "Updated"
			}
			cmd.Printf("  %-8s %s (%s)\n", label+":", ev.File.Name, formatKB(ev.File.Size))
		case domain.StageChunked:
			cmd.Printf("  %s: %d chunks\n", ev.File.Name, ev.File.Chunks)
		case domain.StageCleared:
			cmd.Printf("  Cleared existing vectors for %s\n", ev.File.Name)
		case domain.StageBatch:
			cmd.Printf("  Upserted %d/%d chunks\n", ev.Done, ev.Total)
		}
	}
}

func printIngestSummary(cmd *cobra.Command, report *domain.IngestReport, dataDir string) {
	cmd.Println()
	if report.Discovered == 0 {
		cmd.Printf("No Markdown, text or PDF files found in %s.\n", dataDir)
		return
	}

	cmd.Println(report.Summary())
	if len(report.Warnings) > 0 {
		cmd.Printf("%d warning(s):\n", len(report.Warnings))
		for _, w := range report.Warnings {
			cmd.Printf("  - %s\n", w)
		}
	}
}

func formatKB(size int64) string {
	return fmt.Sprintf("%.1f KB", float64(size)/1024)
}
