package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-safety-gate/internal/audit"
	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/policy"
	"github.com/scribe-safety-gate/internal/review"
	"github.com/scribe-safety-gate/internal/service"
)

func newMCPServer(t *testing.T, production bool) (*Server, *policy.Set) {
	t.Helper()

	policies, err := policy.Load("")
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()

	store, err := review.NewSQLiteStore(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gate, err := review.NewGate(store, 16, logger)
	require.NoError(t, err)

	gatekeeper := service.New(policies, gate, audit.NewRecorder(logger, nil, time.Second), production, logger)
	return NewServer(gatekeeper, "v0.1.0", logger), policies
}

func callRequest(t *testing.T, args any) *sdk.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &sdk.CallToolRequest{
		Params: &sdk.CallToolParams{Arguments: json.RawMessage(raw)},
	}
}

func textOf(t *testing.T, result *sdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return text.Text
}

func validateArgs(policies *policy.Set, description string) ValidateDocumentParams {
	doc := map[string]any{
		"study_type": "chest_xray",
		"observations": []map[string]any{
			{"region": "lungs", "description": description},
		},
		"disclaimer": policies.RequiredDisclaimer(domain.LanguageEN, domain.KindImagingFindings),
	}
	raw, _ := json.Marshal(doc)
	return ValidateDocumentParams{
		Kind:     "IMAGING_FINDINGS",
		Language: "en",
		Document: string(raw),
	}
}

func TestValidateDocumentToolAccepts(t *testing.T) {
	server, policies := newMCPServer(t, false)

	result, err := server.handleValidateDocument(context.Background(),
		callRequest(t, validateArgs(policies, "clear fields")))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, true, result.Meta["accepted"])
	assert.NotEmpty(t, result.Meta["document_id"])
	assert.Equal(t, "PENDING_REVIEW", result.Meta["status"])
}

func TestValidateDocumentToolRejects(t *testing.T) {
	server, policies := newMCPServer(t, false)

	result, err := server.handleValidateDocument(context.Background(),
		callRequest(t, validateArgs(policies, "findings consistent with pneumonia")))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, false, result.Meta["accepted"])
	assert.Equal(t, "FORBIDDEN_PHRASE_DETECTED", result.Meta["code"])
}

func TestValidateDocumentToolProductionMessage(t *testing.T) {
	server, policies := newMCPServer(t, true)

	result, err := server.handleValidateDocument(context.Background(),
		callRequest(t, validateArgs(policies, "findings consistent with pneumonia")))
	require.NoError(t, err)

	assert.Equal(t, domain.PublicMessage, textOf(t, result))
}

func TestValidateDocumentToolMissingDocument(t *testing.T) {
	server, _ := newMCPServer(t, false)

	result, err := server.handleValidateDocument(context.Background(),
		callRequest(t, ValidateDocumentParams{Kind: "IMAGING_FINDINGS", Language: "en"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLifecycleTools(t *testing.T) {
	server, policies := newMCPServer(t, false)
	ctx := context.Background()

	accepted, err := server.handleValidateDocument(ctx,
		callRequest(t, validateArgs(policies, "clear fields")))
	require.NoError(t, err)
	id := accepted.Meta["document_id"].(string)

	status, err := server.handleGetReviewStatus(ctx,
		callRequest(t, DocumentIDParams{DocumentID: id}))
	require.NoError(t, err)
	assert.Equal(t, "PENDING_REVIEW", status.Meta["status"])

	acked, err := server.handleAcknowledgeDocument(ctx,
		callRequest(t, DocumentIDParams{DocumentID: id, Actor: "dr-lee"}))
	require.NoError(t, err)
	require.False(t, acked.IsError)
	assert.Equal(t, "REVIEWED", acked.Meta["status"])

	signed, err := server.handleSignDocument(ctx,
		callRequest(t, DocumentIDParams{DocumentID: id, Actor: "dr-lee"}))
	require.NoError(t, err)
	require.False(t, signed.IsError)
	assert.Equal(t, "SIGNED", signed.Meta["status"])

	addendum, err := server.handleAddAddendum(ctx,
		callRequest(t, AddendumParams{DocumentID: id, Author: "dr-lee", Body: "technique clarified"}))
	require.NoError(t, err)
	require.False(t, addendum.IsError)
	assert.Contains(t, textOf(t, addendum), fmt.Sprintf("document %s", id))
}

func TestSignBeforeAcknowledgeIsError(t *testing.T) {
	server, policies := newMCPServer(t, false)
	ctx := context.Background()

	accepted, err := server.handleValidateDocument(ctx,
		callRequest(t, validateArgs(policies, "clear fields")))
	require.NoError(t, err)
	id := accepted.Meta["document_id"].(string)

	result, err := server.handleSignDocument(ctx,
		callRequest(t, DocumentIDParams{DocumentID: id, Actor: "dr-lee"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "not been acknowledged")
}

func TestUnknownDocumentTools(t *testing.T) {
	server, _ := newMCPServer(t, false)

	result, err := server.handleGetReviewStatus(context.Background(),
		callRequest(t, DocumentIDParams{DocumentID: "unknown"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
