package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scribe-safety-gate/internal/domain"
)

// ValidateDocumentParams are the arguments for the validate_document tool.
type ValidateDocumentParams struct {
	Kind     string `json:"kind"`
	Language string `json:"language"`
	Document string `json:"document"`
}

// DocumentIDParams identify a document for status and lifecycle tools.
type DocumentIDParams struct {
	DocumentID string `json:"document_id"`
	Actor      string `json:"actor,omitempty"`
}

// AddendumParams are the arguments for the add_addendum tool.
type AddendumParams struct {
	DocumentID string `json:"document_id"`
	Author     string `json:"author"`
	Body       string `json:"body"`
}

// handleValidateDocument handles the validate_document tool invocation
func (s *Server) handleValidateDocument(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "validate_document").Info("Tool invoked")

	var params ValidateDocumentParams
	if err := json.Unmarshal(req.Params.Arguments.(json.RawMessage), &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.Document == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("document is required")), nil
	}

	doc := domain.CandidateDocument{
		RawText:  params.Document,
		Kind:     domain.DocumentKind(params.Kind),
		Language: domain.Language(params.Language),
	}

	record, verr, err := s.gatekeeper.Submit(ctx, doc, "")
	if err != nil {
		return s.createErrorResult("Submission failed", err), nil
	}
	if verr != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: s.gatekeeper.RejectionMessage(verr)},
			},
			Meta: map[string]interface{}{
				"accepted": false,
				"code":     string(verr.Code),
			},
		}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Document accepted and registered for review as %s", record.ID),
			},
		},
		Meta: map[string]interface{}{
			"accepted":       true,
			"document_id":    record.ID,
			"status":         string(record.Status),
			"policy_version": record.PolicyVersion,
		},
	}, nil
}

// handleGetReviewStatus handles the get_review_status tool invocation
func (s *Server) handleGetReviewStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "get_review_status").Info("Tool invoked")

	var params DocumentIDParams
	if err := json.Unmarshal(req.Params.Arguments.(json.RawMessage), &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.DocumentID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("document_id is required")), nil
	}

	record, err := s.gatekeeper.Status(ctx, params.DocumentID)
	if err != nil {
		return s.createErrorResult("Lookup failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Document %s is %s", record.ID, record.Status),
			},
		},
		Meta: map[string]interface{}{
			"document_id":    record.ID,
			"status":         string(record.Status),
			"kind":           string(record.Kind),
			"language":       string(record.Language),
			"policy_version": record.PolicyVersion,
		},
	}, nil
}

// handleAcknowledgeDocument handles the acknowledge_document tool invocation
func (s *Server) handleAcknowledgeDocument(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "acknowledge_document").Info("Tool invoked")

	var params DocumentIDParams
	if err := json.Unmarshal(req.Params.Arguments.(json.RawMessage), &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.DocumentID == "" || params.Actor == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("document_id and actor are required")), nil
	}

	record, err := s.gatekeeper.Acknowledge(ctx, params.DocumentID, params.Actor, "")
	if err != nil {
		return s.createErrorResult("Acknowledge failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Document %s acknowledged by %s", record.ID, params.Actor),
			},
		},
		Meta: map[string]interface{}{
			"document_id": record.ID,
			"status":      string(record.Status),
		},
	}, nil
}

// handleSignDocument handles the sign_document tool invocation
func (s *Server) handleSignDocument(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "sign_document").Info("Tool invoked")

	var params DocumentIDParams
	if err := json.Unmarshal(req.Params.Arguments.(json.RawMessage), &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.DocumentID == "" || params.Actor == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("document_id and actor are required")), nil
	}

	record, err := s.gatekeeper.Sign(ctx, params.DocumentID, params.Actor, "")
	if err != nil {
		return s.createErrorResult("Sign failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Document %s signed by %s", record.ID, params.Actor),
			},
		},
		Meta: map[string]interface{}{
			"document_id": record.ID,
			"status":      string(record.Status),
		},
	}, nil
}

// handleAddAddendum handles the add_addendum tool invocation
func (s *Server) handleAddAddendum(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "add_addendum").Info("Tool invoked")

	var params AddendumParams
	if err := json.Unmarshal(req.Params.Arguments.(json.RawMessage), &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.DocumentID == "" || params.Author == "" || params.Body == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("document_id, author and body are required")), nil
	}

	addendum, err := s.gatekeeper.AddAddendum(ctx, params.DocumentID, params.Author, params.Body, "")
	if err != nil {
		return s.createErrorResult("Addendum failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Addendum %s recorded on document %s", addendum.ID, addendum.DocumentID),
			},
		},
		Meta: map[string]interface{}{
			"addendum_id": addendum.ID,
			"document_id": addendum.DocumentID,
		},
	}, nil
}

// createErrorResult creates a standardized error result
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
