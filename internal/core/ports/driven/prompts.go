package driven

// PromptStore provides access to LLM prompt text.
// Prompt names are the domain.Prompt* constants and domain.ModePromptName values.
type PromptStore interface {
	// Load returns the prompt for the given name.
	// Implementations fall back to domain.DefaultPrompts for known names.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service uses the built-in defaults.
	SetPromptStore(store PromptStore)
}
