package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to ask about Matthew"`
	Mode     string `json:"mode,omitempty" jsonschema:"answer style (interview story tldr humblebrag or selfreflection; default interview)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	DryRun      bool   `json:"dry_run,omitempty" jsonschema:"load and chunk only, without embedding or writing"`
	Clear       bool   `json:"clear,omitempty" jsonschema:"delete existing vectors of each processed file first"`
	Incremental bool   `json:"incremental,omitempty" jsonschema:"only process files whose content changed"`
	File        string `json:"file,omitempty" jsonschema:"restrict the run to this filename"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	RunID      string             `json:"run_id"`
	Summary    string             `json:"summary"`
	Discovered int                `json:"discovered"`
	Selected   int                `json:"selected"`
	Documents  int                `json:"documents"`
	Chunks     int                `json:"chunks"`
	Upserted   int                `json:"upserted"`
	DryRun     bool               `json:"dry_run"`
	UpToDate   bool               `json:"up_to_date"`
	Files      []FileResultOutput `json:"files"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// FileResultOutput is the outcome for one file of an ingest run.
type FileResultOutput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
	Reason string `json:"reason,omitempty"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes one file in the data directory.
type DocumentOutput struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified string `json:"last_modified"`
}

// ingestTimeout bounds a single ingest tool call.
var ingestTimeout = domain.DefaultIngestTimeout

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question answered from Matthew's indexed documents, with cited sources",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest the data directory into the vector index",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents in the data directory, newest first",
	}, s.handleListDocuments)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Answer.Answer(ctx, input.Question, domain.ParseMode(input.Mode))
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer.Answer, Sources: answer.Sources}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, domain.ErrConfigMissing
	}

	ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
	defer cancel()

	report, err := s.ports.Ingest.Ingest(ctx, domain.IngestOptions{
		DryRun:      input.DryRun,
		Clear:       input.Clear,
		Incremental: input.Incremental,
		File:        input.File,
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, IngestOutput{}, errors.New("ingestion timed out")
	}
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, toIngestOutput(report), nil
}

func toIngestOutput(report *domain.IngestReport) IngestOutput {
	out := IngestOutput{
		RunID:      report.RunID,
		Summary:    report.Summary(),
		Discovered: report.Discovered,
		Selected:   report.Selected,
		Documents:  report.Documents,
		Chunks:     report.Chunks,
		Upserted:   report.Upserted,
		DryRun:     report.DryRun,
		UpToDate:   report.UpToDate,
		Files:      make([]FileResultOutput, len(report.Files)),
		Warnings:   report.Warnings,
	}
	for i, f := range report.Files {
		out.Files[i] = FileResultOutput{
			Name:   f.Name,
			Status: string(f.Status),
			Chunks: f.Chunks,
			Reason: f.Reason,
		}
	}
	return out
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Dataset == nil {
		return nil, ListDocumentsOutput{Documents: []DocumentOutput{}}, nil
	}

	files, err := s.ports.Dataset.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(files)),
		Count:     len(files),
	}
	for i, f := range files {
		output.Documents[i] = DocumentOutput{
			Name:         f.Name,
			Size:         f.Size,
			Type:         f.Type,
			LastModified: f.LastModified.UTC().Format(time.RFC3339),
		}
	}
	return nil, output, nil
}
