// Package chunker splits normalised text into overlapping chunks, preferring
// paragraph, line, sentence and word boundaries before cutting mid-word.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// separators are tried in order; "" means a hard cut between characters.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits document text into chunks of at most chunkSize characters.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Chunk splits text into chunks with IDs "<filename>:0000", "<filename>:0001", ...
// Every chunk carries md and the total chunk count. Empty text yields no chunks.
func (p *Processor) Chunk(text, filename string, md domain.Metadata) []domain.Chunk {
	parts := p.Split(text)
	if len(parts) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			ID:       domain.ChunkID(filename, i),
			Text:     part,
			Index:    i,
			Total:    len(parts),
			Filename: filename,
			Metadata: md,
		}
	}
	return chunks
}

// Split returns the chunk texts for text.
func (p *Processor) Split(text string) []string {
	return p.split(text, separators)
}

func (p *Processor) split(text string, seps []string) []string {
	separator := seps[len(seps)-1]
	var next []string
	for i, s := range seps {
		if s == "" {
			separator = ""
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = seps[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeep(text, separator) {
		if length(piece) < p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, p.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, p.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, p.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks, carrying up to overlap characters from
// the end of one chunk into the start of the next.
func (p *Processor) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := length(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			if doc := join(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := join(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits text after each separator, keeping the separator on the
// preceding piece. An empty separator splits into characters.
func splitKeep(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = strings.Split(text, "")
	} else {
		parts = strings.SplitAfter(text, sep)
	}
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
