package driving

import "github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"

// SettingsService resolves and edits application configuration.
type SettingsService interface {
	// Config returns the effective configuration: defaults, then the
	// config file, then environment variables.
	Config() (domain.Config, error)

	// Set validates value for key and persists it to the config file.
	Set(key, value string) error

	// Unset removes key from the config file.
	Unset(key string) error

	// Entries lists every key with its effective value, secrets masked.
	Entries(cfg domain.Config) []SettingEntry

	// Path returns the config file path.
	Path() string
}

// SettingEntry is one row of the effective configuration.
type SettingEntry struct {
	Key         string
	Value       string
	Description string
}
