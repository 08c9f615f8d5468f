package cli

import (
	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driving/httpapi"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the JSON API used by the web front end:

  POST   /api/chat                         ask a question
  GET    /api/ingest, POST /api/ingest     ingestion status, trigger a run
  GET    /api/dataset                      list documents
  DELETE /api/dataset/{filename}           delete a document and its vectors
  GET    /api/dataset/{filename}/download  download a document
  POST   /api/upload                       upload a document (multipart field "file")`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr, :3000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, cfg, err := openServices(cmd, domain.NeedEmbedding|domain.NeedLLM|domain.NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Answer:  svc.Answer,
		Ingest:  svc.Ingest,
		Dataset: svc.Dataset,
	}, httpapi.WithAddr(addr), httpapi.WithIngestTimeout(cfg.Server.IngestTimeout))
	if err != nil {
		return err
	}

	if err := server.Start(); err != nil {
		return err
	}
	cmd.Printf("Codex API listening on http://%s\n", server.Addr())

	<-cmd.Context().Done()
	cmd.Println("Shutting down...")
	return server.Stop()
}
