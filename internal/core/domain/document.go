package domain

import (
	"path/filepath"
	"strings"
)

// FileType is the detected format of a document on disk.
type FileType string

// Supported file types.
const (
	FileTypeMarkdown FileType = "markdown"
	FileTypeText     FileType = "text"
	FileTypePDF      FileType = "pdf"
)

// AllowedExtensions lists the file extensions picked up by discovery, upload and listing.
var AllowedExtensions = []string{".md", ".txt", ".pdf"}

// DetectFileType maps a filename to its FileType by extension.
// The second return value is false for unsupported extensions.
func DetectFileType(filename string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md":
		return FileTypeMarkdown, true
	case ".txt":
		return FileTypeText, true
	case ".pdf":
		return FileTypePDF, true
	default:
		return "", false
	}
}

// IsAllowedFile returns true if the filename has a supported extension.
func IsAllowedFile(filename string) bool {
	_, ok := DetectFileType(filename)
	return ok
}

// MIMEType returns the content type served for a dataset file.
func MIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// Source categories a document can be filed under.
const (
	SourceCV                 = "CV"
	SourceProjectREADME      = "Project README"
	SourceWorkStyleNotes     = "Work-Style Notes"
	SourceAcademicTranscript = "Academic Transcript"
	SourcePortfolio          = "Portfolio"
	SourceLiteratureReview   = "Literature Review"
	SourceDoc                = "Doc"
)

// sourceRules is evaluated in order; the first rule with a matching keyword wins.
var sourceRules = []struct {
	keywords []string
	source   string
}{
	{[]string{"cv", "resume"}, SourceCV},
	{[]string{"readme", "project"}, SourceProjectREADME},
	{[]string{"style", "values", "notes"}, SourceWorkStyleNotes},
	{[]string{"transcript"}, SourceAcademicTranscript},
	{[]string{"portfolio"}, SourcePortfolio},
	{[]string{"literature", "review"}, SourceLiteratureReview},
}

// Metadata is the descriptive information attached to a document and
// copied onto each of its chunks.
type Metadata struct {
	// Title is the display title.
	Title string `json:"title"`

	// Source is one of the Source* categories.
	Source string `json:"source"`

	// Tags are free-form labels declared in front-matter.
	Tags []string `json:"tags"`
}

// InferMetadata derives metadata from a filename alone.
// The title is the filename without its final extension and the source
// is chosen by case-insensitive keyword matching.
func InferMetadata(filename string) Metadata {
	lower := strings.ToLower(filename)

	source := SourceDoc
rules:
	for _, rule := range sourceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				source = rule.source
				break rules
			}
		}
	}

	return Metadata{
		Title:  strings.TrimSuffix(filename, filepath.Ext(filename)),
		Source: source,
		Tags:   []string{},
	}
}

// Merge returns m with every empty field filled from fallback.
func (m Metadata) Merge(fallback Metadata) Metadata {
	out := m
	if out.Title == "" {
		out.Title = fallback.Title
	}
	if out.Source == "" {
		out.Source = fallback.Source
	}
	if out.Tags == nil {
		out.Tags = fallback.Tags
	}
	return out
}

// Document is a file read from the data directory.
// It is identified by its filename.
type Document struct {
	// Filename is the base name within the data directory.
	Filename string

	// Path is the full path the document was read from.
	Path string

	// Type is the detected file type.
	Type FileType

	// Content is the extracted plain text.
	Content string

	// Metadata is the declared or inferred metadata.
	Metadata Metadata
}
