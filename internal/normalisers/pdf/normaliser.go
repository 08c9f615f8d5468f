// Package pdf loads PDF documents by extracting the text of each page.
// PDFs carry no front-matter, so metadata is always inferred from the filename.
package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.ContentLoader = (*Normaliser)(nil)

// PageReader extracts text from a PDF one page at a time.
type PageReader interface {
	// Pages returns the text of every page in page order.
	Pages(path string) ([]string, error)
}

// Normaliser handles .pdf files.
type Normaliser struct {
	reader PageReader
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithPageReader replaces the MuPDF-backed page reader.
func WithPageReader(r PageReader) Option {
	return func(n *Normaliser) {
		n.reader = r
	}
}

// New creates a new PDF normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{reader: fitzReader{}}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// Load extracts page text and joins it with a newline after every page.
func (n *Normaliser) Load(_ context.Context, path string) (*domain.Document, error) {
	pages, err := n.reader.Pages(path)
	if err != nil {
		return nil, fmt.Errorf("parse PDF: %w", err)
	}

	var b strings.Builder
	for _, page := range pages {
		b.WriteString(page)
		b.WriteByte('\n')
	}
	content := b.String()

	filename := filepath.Base(path)
	logger.Debug("PDF parsed: %s, %d pages, %d characters", filename, len(pages), len(content))

	return &domain.Document{
		Filename: filename,
		Path:     path,
		Type:     domain.FileTypePDF,
		Content:  content,
		Metadata: domain.InferMetadata(filename),
	}, nil
}

// fitzReader reads pages with MuPDF.
type fitzReader struct{}

func (fitzReader) Pages(path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
