package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driving/mcp"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions about Matthew, trigger ingestion and list the documents.

By default, the server communicates over stdio using JSON-RPC.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  codex mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  codex mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "codex": {
        "command": "/path/to/codex",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, _, err := openServices(cmd, domain.NeedEmbedding|domain.NeedLLM|domain.NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()

	ports := &mcp.Ports{
		Answer:  svc.Answer,
		Ingest:  svc.Ingest,
		Dataset: svc.Dataset,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
