// Package cli implements the codex command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	verbose     bool
	configPath  string
	dataDirFlag string
	indexFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "codex",
	Short: "Matthew's Codex: answers questions from a personal knowledge base",
	Long: `Codex ingests Markdown, text and PDF files from a data directory into a
vector index and answers questions about Matthew from them, citing the
documents it used.

Configuration is read from ~/.codex/config.toml, then .env files, then the
environment (OPENAI_API_KEY, PINECONE_API_KEY, DATABASE_URL, ...).`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.codex/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "directory holding the knowledge base files")
	rootCmd.PersistentFlags().StringVar(&indexFlag, "index", "", "vector index backend: sqlite, pinecone, pgvector or memory")
}

// Services are the driving ports a command runs against.
// Fields a command did not ask for may be nil.
type Services struct {
	Answer  driving.AnswerService
	Ingest  driving.IngestService
	Dataset driving.DatasetService
	Watch   driving.WatchService

	// Check probes the external services that were built.
	Check func(ctx context.Context) []CheckResult

	// Close releases connections held by the services.
	Close func()
}

// CheckResult is the outcome of probing one external service.
type CheckResult struct {
	Name string
	Err  error
}

func (s *Services) close() {
	if s != nil && s.Close != nil {
		s.Close()
	}
}

// Bootstrap connects the command line to configuration and service construction.
type Bootstrap interface {
	// Settings opens the settings service backed by path, or by the
	// default config file when path is empty.
	Settings(path string) (driving.SettingsService, error)

	// Services builds the services for cfg. needs names the external
	// services the command will call.
	Services(ctx context.Context, cfg domain.Config, needs domain.Requirement) (*Services, error)
}

var (
	bootstrap       Bootstrap
	settingsService driving.SettingsService
)

// Execute runs the command line with b supplying configuration and services.
func Execute(ctx context.Context, b Bootstrap, buildVersion string) error {
	bootstrap = b
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.ExecuteContext(ctx)
}

// settings returns the settings service, opening it on first use.
func settings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if bootstrap == nil {
		return nil, errors.New("settings service not configured")
	}
	svc, err := bootstrap.Settings(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService = svc
	return svc, nil
}

// loadConfig returns the effective configuration with flag overrides applied.
func loadConfig() (domain.Config, error) {
	svc, err := settings()
	if err != nil {
		return domain.Config{}, err
	}
	cfg, err := svc.Config()
	if err != nil {
		return domain.Config{}, err
	}

	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if indexFlag != "" {
		backend := domain.IndexBackend(strings.ToLower(indexFlag))
		if !backend.IsValid() {
			return domain.Config{}, fmt.Errorf("%w: --index %q is not one of sqlite, pinecone, pgvector, memory",
				domain.ErrInvalidInput, indexFlag)
		}
		cfg.Index.Backend = backend
	}
	return cfg, nil
}

// openServices builds what a command needs. The caller closes the result.
func openServices(cmd *cobra.Command, needs domain.Requirement) (*Services, domain.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, domain.Config{}, err
	}
	if bootstrap == nil {
		return nil, domain.Config{}, errors.New("services not configured")
	}
	svc, err := bootstrap.Services(cmd.Context(), cfg, needs)
	if err != nil {
		return nil, domain.Config{}, err
	}
	return svc, cfg, nil
}
