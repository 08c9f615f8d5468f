package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

const fence = "---"

// frontMatter is the subset of front-matter fields that feed metadata.
type frontMatter struct {
	Title  string    `yaml:"title"`
	Source string    `yaml:"source"`
	Tags   yaml.Node `yaml:"tags"`
}

// splitFrontMatter separates a leading "---" delimited block from the body.
// Content without a complete block is returned unchanged as the body.
func splitFrontMatter(content []byte) (block, body []byte) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	rest, ok := cutLine(content)
	if !ok || strings.TrimRight(string(rest.line), " \t\r") != fence {
		return nil, content
	}

	start := rest.next
	offset := start
	for offset <= len(content) {
		r, ok := cutLine(content[offset:])
		if strings.TrimRight(string(r.line), " \t\r") == fence {
			return content[start:offset], content[offset+r.next:]
		}
		if !ok {
			break
		}
		offset += r.next
	}
	return nil, content
}

type lineCut struct {
	line []byte
	next int
}

func cutLine(b []byte) (lineCut, bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return lineCut{line: b, next: len(b)}, false
	}
	return lineCut{line: b[:i], next: i + 1}, true
}

// parseFrontMatter decodes a front-matter block into metadata.
// Fields that are absent or empty are left zero so Merge can fill them.
func parseFrontMatter(block []byte) (domain.Metadata, error) {
	var fm frontMatter
	if len(bytes.TrimSpace(block)) == 0 {
		return domain.Metadata{}, nil
	}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return domain.Metadata{}, fmt.Errorf("parse front-matter: %w", err)
	}

	md := domain.Metadata{
		Title:  strings.TrimSpace(fm.Title),
		Source: strings.TrimSpace(fm.Source),
	}

	switch fm.Tags.Kind {
	case yaml.SequenceNode:
		tags := []string{}
		if err := fm.Tags.Decode(&tags); err != nil {
			return domain.Metadata{}, fmt.Errorf("parse front-matter tags: %w", err)
		}
		md.Tags = tags
	case yaml.ScalarNode:
		if fm.Tags.Tag != "!!null" && fm.Tags.Value != "" {
			md.Tags = []string{fm.Tags.Value}
		}
	}
	return md, nil
}
