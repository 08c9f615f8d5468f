package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driving"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// Ensure AnswerComposer implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerComposer)(nil)
	_ driven.PromptStoreAware = (*AnswerComposer)(nil)
)

// Generation settings per reply kind.
var (
	greetingOptions  = driven.ChatOptions{Temperature: 0.7, MaxTokens: 200}
	noContextOptions = driven.ChatOptions{Temperature: 0.3, MaxTokens: 400}
	groundedOptions  = driven.ChatOptions{Temperature: 0.3, MaxTokens: 600}
)

var greetingPattern = regexp.MustCompile(`(?i)^(hey|hi|hello|good morning|good afternoon|good evening|how are you|what's up|sup|yo)$`)

// IsGreeting reports whether question is small talk that needs no retrieval.
func IsGreeting(question string) bool {
	return greetingPattern.MatchString(strings.TrimSpace(question))
}

// AnswerComposer answers questions from the vector index through the LLM.
type AnswerComposer struct {
	embedding driven.EmbeddingService
	index     driven.VectorIndex
	llm       driven.LLMService
	prompts   driven.PromptStore
	defaults  map[string]string
	topK      int
	threshold float64
}

// NewAnswerComposer creates a composer. Non-positive topK falls back to the default.
func NewAnswerComposer(
	embedding driven.EmbeddingService,
	index driven.VectorIndex,
	llm driven.LLMService,
	retrieval domain.RetrievalSettings,
) *AnswerComposer {
	topK := retrieval.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &AnswerComposer{
		embedding: embedding,
		index:     index,
		llm:       llm,
		defaults:  domain.DefaultPrompts(),
		topK:      topK,
		threshold: retrieval.Threshold,
	}
}

// SetPromptStore replaces the built-in prompt text with user-editable prompts.
func (c *AnswerComposer) SetPromptStore(store driven.PromptStore) {
	c.prompts = store
}

// Answer composes a reply to question in the given mode.
func (c *AnswerComposer) Answer(ctx context.Context, question string, mode domain.Mode) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: message required", domain.ErrInvalidInput)
	}
	if mode == "" {
		mode = domain.DefaultMode
	}

	if IsGreeting(question) {
		logger.Debug("Greeting detected, skipping retrieval")
		return c.reply(ctx, c.prompt(domain.PromptGreeting), question, greetingOptions, nil)
	}

	logger.Section("Retrieval")
	logger.Debug("Embedding query: %q", question)
	vec, err := c.embedding.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	logger.Debug("Querying index with topK=%d", c.topK)
	matches, err := c.index.Query(ctx, vec, c.topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	logger.Debug("Found %d matches", len(matches))
	for i, m := range matches {
		logger.Debug("  %d. Score: %.3f, Title: %s", i+1, m.Score, m.DisplayTitle("Unknown"))
	}

	if !c.anyRelevant(matches) {
		logger.Debug("No relevant documents found (threshold: %g)", c.threshold)
		return c.reply(ctx, c.prompt(domain.PromptNoContext), question, noContextOptions, nil)
	}

	logger.Debug("Building context from %d sources", len(matches))
	system := strings.TrimSpace(c.prompt(domain.PromptSystem) + "\n" + c.prompt(domain.ModePromptName(mode)))
	user := BuildUserTurn(question, BuildContext(matches))

	sources := make([]string, len(matches))
	for i, m := range matches {
		sources[i] = m.DisplayTitle(domain.SourceDoc)
	}
	return c.reply(ctx, system, user, groundedOptions, sources)
}

// anyRelevant reports whether at least one match meets the threshold.
func (c *AnswerComposer) anyRelevant(matches []domain.RetrievalMatch) bool {
	for _, m := range matches {
		if m.Score >= c.threshold {
			return true
		}
	}
	return false
}

func (c *AnswerComposer) reply(
	ctx context.Context, system, user string, opts driven.ChatOptions, sources []string,
) (*domain.Answer, error) {
	text, err := c.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if sources == nil {
		sources = []string{}
	}
	return &domain.Answer{Answer: text, Sources: sources}, nil
}

// prompt returns the named prompt from the store, or the built-in text.
// Unknown names, such as an unrecognised mode, yield "".
func (c *AnswerComposer) prompt(name string) string {
	if c.prompts != nil {
		if text, err := c.prompts.Load(name); err == nil {
			return text
		}
		logger.Debug("Prompt %s not found in store, using default", name)
	}
	return c.defaults[name]
}

// BuildContext renders matches as labelled sections in rank order.
func BuildContext(matches []domain.RetrievalMatch) string {
	sections := make([]string, len(matches))
	for i, m := range matches {
		md := m.Metadata
		title := m.DisplayTitle(fmt.Sprintf("Doc %d", i+1))
		src := md.Source
		if src == "" {
			src = domain.SourceDoc
		}
		sections[i] = fmt.Sprintf("# Source %d: %s\n[%s] %s\n%s", i+1, title, src, md.File, md.Text)
	}
	return strings.Join(sections, "\n\n")
}

// BuildUserTurn wraps the question and context with answering instructions.
func BuildUserTurn(question, contextBlock string) string {
	return "Question:\n" + question +
		"\n\nContext:\n" + contextBlock +
		"\n\nInstructions:\n- Use only the context provided.\n- If info is missing, state what is missing.\n" +
		`- End your reply with: "Sources: <titles>"`
}
