// Package markdown loads markdown and plain-text documents. Both may start
// with a YAML front-matter block; the body is reduced to plain text.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.ContentLoader = (*Normaliser)(nil)

// Normaliser handles .md and .txt files.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".txt"}
}

// Load reads the file, applies front-matter over inferred metadata and
// converts the markdown body to plain text.
func (n *Normaliser) Load(_ context.Context, path string) (*domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	filename := filepath.Base(path)
	fileType, ok := domain.DetectFileType(filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filename)
	}

	block, body := splitFrontMatter(raw)
	declared, err := parseFrontMatter(block)
	if err != nil {
		return nil, err
	}

	return &domain.Document{
		Filename: filename,
		Path:     path,
		Type:     fileType,
		Content:  stripMarkdown(string(body)),
		Metadata: declared.Merge(domain.InferMetadata(filename)),
	}, nil
}

var (
	codeFence    = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinks     = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	linkDefs     = regexp.MustCompile(`(?m)^[ \t]{0,3}\[[^\]]+\]:[ \t]+\S+.*$`)
	autolinks    = regexp.MustCompile(`<((?:https?|mailto):[^>\s]+)>`)
	htmlTags     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	headings     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)
	setextRule   = regexp.MustCompile(`(?m)^[ \t]{0,3}(=+|-+)[ \t]*$`)
	boldStar     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldUnder    = regexp.MustCompile(`__([^_]+)__`)
	italicStar   = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	italicUnder  = regexp.MustCompile(`(^|[^\w])_([^_\s][^_]*)_([^\w]|$)`)
	strike       = regexp.MustCompile(`~~([^~]+)~~`)
	blockquote   = regexp.MustCompile(`(?m)^[ \t]{0,3}>[ \t]?`)
	hr           = regexp.MustCompile(`(?m)^[ \t]{0,3}([-*_][ \t]*){3,}$`)
	listMarkers  = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+(\[[ xX]\][ \t]+)?`)
	numberedList = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	tablePipes   = regexp.MustCompile(`(?m)^[ \t]*\|?([ \t]*:?-+:?[ \t]*\|)+[ \t]*:?-*:?[ \t]*$`)
)

// stripMarkdown removes markdown syntax while keeping all text content,
// including the contents of code blocks.
func stripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")

	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinks.ReplaceAllString(content, "$1")
	content = linkDefs.ReplaceAllString(content, "")
	content = autolinks.ReplaceAllString(content, "$1")
	content = htmlTags.ReplaceAllString(content, "")

	content = hr.ReplaceAllString(content, "")
	content = setextRule.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "$1")
	content = blockquote.ReplaceAllString(content, "")
	content = tablePipes.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")

	content = boldStar.ReplaceAllString(content, "$1")
	content = boldUnder.ReplaceAllString(content, "$1")
	content = italicStar.ReplaceAllString(content, "$1")
	content = italicUnder.ReplaceAllString(content, "$1$2$3")
	content = strike.ReplaceAllString(content, "$1")

	return strings.TrimSpace(content)
}
