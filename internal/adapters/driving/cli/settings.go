package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and edit the codex configuration.

Values are resolved from built-in defaults, then the config file, then .env
files and the environment. 'config set' writes to the config file only.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a value from the config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup",
	Long:  `Prompts for the API key and vector index backend and saves them to the config file.`,
	RunE:  runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and ping the external services",
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cmd.Printf("Config file: %s\n\n", svc.Path())
	for _, e := range svc.Entries(cfg) {
		value := e.Value
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %-30s %s\n", e.Key, value)
	}
	cmd.Println()

	if err := cfg.Validate(domain.NeedEmbedding | domain.NeedLLM | domain.NeedIndex); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'codex config init' or 'codex config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s in %s\n", args[0], svc.Path())
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}
	if err := svc.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("Removed %s from %s\n", args[0], svc.Path())
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	cmd.Println("Codex Setup")
	cmd.Println("===========")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	// Step 1: OpenAI
	cmd.Print("OpenAI API key (leave empty to keep the current one): ")
	if key := readSecret(in, reader); key != "" {
		if err := svc.Set("openai.api_key", key); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
	}
	cmd.Println()

	// Step 2: vector index
	backends := []domain.IndexBackend{
		domain.IndexBackendSQLite,
		domain.IndexBackendPinecone,
		domain.IndexBackendPgvector,
		domain.IndexBackendMemory,
	}
	cmd.Println("Vector index backend:")
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b)
	}
	cmd.Print("\nEnter choice [1]: ")
	backend := backends[parseChoice(readLine(reader), len(backends), 1)-1]
	if err := svc.Set("index.backend", string(backend)); err != nil {
		return fmt.Errorf("failed to save backend: %w", err)
	}

	switch backend {
	case domain.IndexBackendPinecone:
		cmd.Print("Pinecone API key: ")
		if key := readSecret(in, reader); key != "" {
			if err := svc.Set("pinecone.api_key", key); err != nil {
				return err
			}
		}
		cmd.Println()
		cmd.Print("Pinecone index host: ")
		if host := readLine(reader); host != "" {
			if err := svc.Set("pinecone.host", host); err != nil {
				return err
			}
		}
	case domain.IndexBackendPgvector:
		cmd.Print("PostgreSQL connection string: ")
		if url := readSecret(in, reader); url != "" {
			if err := svc.Set("index.database_url", url); err != nil {
				return err
			}
		}
		cmd.Println()
	}

	cmd.Printf("\nSaved to %s\n", svc.Path())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	needs := domain.NeedEmbedding | domain.NeedLLM | domain.NeedIndex

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(needs); err != nil {
		return err
	}
	cmd.Println("Configuration: OK")

	svc, _, err := openServices(cmd, needs)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Check == nil {
		return errors.New("health check not configured")
	}

	var failed []string
	for _, r := range svc.Check(cmd.Context()) {
		if r.Err != nil {
			cmd.Printf("%s: FAILED (%v)\n", r.Name, r.Err)
			failed = append(failed, r.Name)
			continue
		}
		cmd.Printf("%s: OK\n", r.Name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d service(s) unreachable: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when in is a terminal.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}
