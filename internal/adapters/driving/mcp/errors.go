// Package mcp provides an MCP (Model Context Protocol) server adapter for Codex.
// It lets AI assistants ask questions, trigger ingestion and browse the dataset.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
