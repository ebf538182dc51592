// Package mcp exposes the gate to AI scribe agents over the Model Context
// Protocol. The tools mirror the HTTP surface: a scribe submits candidate
// documents and clinicians drive the review lifecycle from their tooling.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/scribe-safety-gate/internal/service"
)

// Server is the MCP server for the safety gate.
type Server struct {
	gatekeeper *service.Gatekeeper
	mcpServer  *mcp.Server
	logger     *logrus.Logger
}

// NewServer creates an MCP server with every gate tool registered.
func NewServer(gatekeeper *service.Gatekeeper, version string, logger *logrus.Logger) *Server {
	serverInfo := &mcp.Implementation{
		Name:    "scribe-safety-gate",
		Version: version,
	}

	s := &Server{
		gatekeeper: gatekeeper,
		mcpServer:  mcp.NewServer(serverInfo, nil),
		logger:     logger,
	}
	s.registerTools()
	return s
}

// registerTools registers the gate tools with the MCP SDK.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(&mcp.Tool{
		Name:        "validate_document",
		Description: "Validate a candidate clinical document. Accepted documents are registered for human review; rejected documents return a refusal message.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleValidateDocument)

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        "get_review_status",
		Description: "Return the review status of a previously accepted document.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleGetReviewStatus)

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        "acknowledge_document",
		Description: "Record a clinician's review of a pending document.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleAcknowledgeDocument)

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        "sign_document",
		Description: "Sign a reviewed document, making it final. Corrections after signing are addenda.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleSignDocument)

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        "add_addendum",
		Description: "Attach a correction to a signed document.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleAddAddendum)

	s.logger.Info("Registered gate tools with MCP SDK")
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
