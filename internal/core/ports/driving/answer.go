package driving

import (
	"context"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// AnswerService answers questions from the indexed documents.
type AnswerService interface {
	// Answer composes a reply to question in the given style.
	Answer(ctx context.Context, question string, mode domain.Mode) (*domain.Answer, error)
}
