package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Codex resources.
	uriScheme = "codex://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents in the data directory",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a document's raw content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{name}",
		Name:        "document-content",
		Description: "Raw content of a document in the data directory",
	}, s.handleDocumentContentResource)
}

// handleDocumentsResource returns the dataset listing.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Dataset == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	files, err := s.ports.Dataset.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Size int64  `json:"size"`
		URI  string `json:"uri"`
	}

	infos := make([]docInfo, len(files))
	for i, f := range files {
		infos[i] = docInfo{
			Name: f.Name,
			Type: f.Type,
			Size: f.Size,
			URI:  uriScheme + "documents/" + f.Name,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleDocumentContentResource returns a document's bytes. Text formats
// are returned as text, PDFs as a blob.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Dataset == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract name from URI: codex://documents/{name}
	name := extractDocumentName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rc, file, err := s.ports.Dataset.Open(ctx, name)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidPath) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	contents := &mcp.ResourceContents{
		URI:      req.Params.URI,
		MIMEType: file.Type,
	}
	if strings.HasPrefix(file.Type, "text/") {
		contents.Text = string(data)
	} else {
		contents.Blob = data
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{contents}}, nil
}

// extractDocumentName extracts the filename from a URI like codex://documents/{name}.
func extractDocumentName(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
