// Package file provides file-backed configuration adapters rooted in ~/.codex.
//
// Adapters:
//   - ConfigStore: TOML configuration with flattened dot-keys
//   - PromptStore: user-editable prompt text files
//   - LoadDotEnv: .env loading for API keys
package file
