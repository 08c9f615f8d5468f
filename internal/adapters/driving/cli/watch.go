package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the data directory and ingest changes",
	Long: `Runs an incremental ingestion, then watches the data directory. Files that
are added or edited are re-ingested once the folder has been quiet for two
seconds; deleted files lose their vectors.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, cfg, err := openServices(cmd, domain.NeedEmbedding|domain.NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Watch == nil {
		return errors.New("watch service not configured")
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", cfg.DataDir)
	return svc.Watch.Watch(cmd.Context(), func(report *domain.IngestReport, err error) {
		if err != nil {
			cmd.Printf("Ingestion failed: %v\n", err)
			return
		}
		cmd.Println(report.Summary())
	})
}
