package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the documents in the data directory",
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDatasetList,
}

var datasetDeleteCmd = &cobra.Command{
	Use:   "delete [filename]",
	Short: "Delete a document, its vectors and its tracking entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetDelete,
}

var datasetUploadCmd = &cobra.Command{
	Use:   "upload [path]",
	Short: "Copy a PDF, Markdown or text file into the data directory",
	Long: `Copies a file into the data directory under a sanitised name. If the name
is taken, _1, _2, ... is appended before the extension. Run 'codex ingest
--incremental' afterwards to index it.`,
	Args: cobra.ExactArgs(1),
	RunE: runDatasetUpload,
}

func init() {
	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetDeleteCmd)
	datasetCmd.AddCommand(datasetUploadCmd)
	rootCmd.AddCommand(datasetCmd)
}

func runDatasetList(cmd *cobra.Command, _ []string) error {
	svc, cfg, err := openServices(cmd, 0)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Dataset == nil {
		return errors.New("dataset service not configured")
	}

	files, err := svc.Dataset.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(files) == 0 {
		cmd.Printf("No documents in %s.\n", cfg.DataDir)
		return nil
	}

	cmd.Printf("Documents in %s:\n\n", cfg.DataDir)
	for _, f := range files {
		cmd.Printf("  %-40s %10s  %-16s %s\n", f.Name, formatKB(f.Size), f.Type,
			f.LastModified.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runDatasetDelete(cmd *cobra.Command, args []string) error {
	svc, _, err := openServices(cmd, domain.NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Dataset == nil {
		return errors.New("dataset service not configured")
	}

	if err := svc.Dataset.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}

	cmd.Printf("Deleted %s.\n", args[0])
	return nil
}

func runDatasetUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	svc, _, err := openServices(cmd, 0)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Dataset == nil {
		return errors.New("dataset service not configured")
	}

	name, err := svc.Dataset.Upload(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}

	cmd.Printf("Uploaded %s as %s.\n", filepath.Base(path), name)
	return nil
}
