package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormaliseText collapses every whitespace run, newlines included, to a
// single space and trims the result.
func NormaliseText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// LoadDocument loads and normalises the file at path. Every failure is
// recoverable: it is logged as a warning and reported through the returned
// reason, and the document is nil.
func LoadDocument(ctx context.Context, loaders driven.LoaderRegistry, path string) (*domain.Document, string) {
	doc, err := loaders.Load(ctx, path)
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, domain.ErrUnsupportedType):
			reason = "unsupported file type"
		default:
			reason = err.Error()
		}
		logger.Warn("Could not load %s: %s", path, reason)
		return nil, reason
	}

	logger.Debug("Raw content length: %d characters", len(doc.Content))
	doc.Content = NormaliseText(doc.Content)
	logger.Debug("Normalised content length: %d characters", len(doc.Content))

	if doc.Content == "" {
		logger.Warn("Skipped %s (empty after normalisation)", doc.Filename)
		return nil, domain.ErrEmptyContent.Error()
	}
	return doc, ""
}
