package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-safety-gate/internal/audit"
	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/policy"
	"github.com/scribe-safety-gate/internal/review"
	"github.com/scribe-safety-gate/internal/service"
)

func newTestServer(t *testing.T, production bool) (*Server, *policy.Set) {
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

	config := domain.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		IdleTimeout:    time.Second,
		RequestTimeout: time.Second,
		RateLimit:      1000,
		RateBurst:      1000,
	}
	return NewServer(gatekeeper, config, production), policies
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func submitBody(policies *policy.Set, description string) map[string]any {
	doc := map[string]any{
		"study_type": "chest_xray",
		"observations": []map[string]any{
			{"region": "lungs", "description": description},
		},
		"disclaimer": policies.RequiredDisclaimer(domain.LanguageEN, domain.KindImagingFindings),
	}
	raw, _ := json.Marshal(doc)
	return map[string]any{
		"kind":     "IMAGING_FINDINGS",
		"language": "en",
		"document": string(raw),
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	server, policies := newTestServer(t, false)

	w := doJSON(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, policies.Version(), body["policy_version"])
}

func TestHealthEndpointDegradedStorage(t *testing.T) {
	server, _ := newTestServer(t, false)
	server.gatekeeper.SetHealthCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	w := doJSON(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestSubmitAccepted(t *testing.T) {
	server, policies := newTestServer(t, false)

	w := doJSON(t, server, http.MethodPost, "/api/v1/documents", submitBody(policies, "clear fields"))
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["accepted"])
	doc := body["document"].(map[string]any)
	assert.Equal(t, "PENDING_REVIEW", doc["status"])
	assert.NotEmpty(t, doc["id"])
}

func TestSubmitRejected(t *testing.T) {
	server, policies := newTestServer(t, false)

	w := doJSON(t, server, http.MethodPost, "/api/v1/documents",
		submitBody(policies, "appearance suggestive of pneumonia"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "FORBIDDEN_PHRASE_DETECTED", body["code"])
}

func TestSubmitRejectedProductionMessage(t *testing.T) {
	server, policies := newTestServer(t, true)

	w := doJSON(t, server, http.MethodPost, "/api/v1/documents",
		submitBody(policies, "appearance suggestive of pneumonia"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decode(t, w)
	assert.Equal(t, domain.PublicMessage, body["message"])
	assert.NotContains(t, w.Body.String(), "pneumonia")
}

func TestSubmitBadRequest(t *testing.T) {
	server, _ := newTestServer(t, false)

	w := doJSON(t, server, http.MethodPost, "/api/v1/documents", map[string]any{"kind": "IMAGING_FINDINGS"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocumentNotFound(t *testing.T) {
	server, _ := newTestServer(t, false)

	w := doJSON(t, server, http.MethodGet, "/api/v1/documents/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewLifecycleOverHTTP(t *testing.T) {
	server, policies := newTestServer(t, false)

	w := doJSON(t, server, http.MethodPost, "/api/v1/documents", submitBody(policies, "clear fields"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["document"].(map[string]any)["id"].(string)

	// Signing before acknowledgment conflicts.
	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/sign", id),
		map[string]any{"actor": "dr-lee"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/acknowledge", id),
		map[string]any{"actor": "dr-lee"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REVIEWED", decode(t, w)["document"].(map[string]any)["status"])

	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/sign", id),
		map[string]any{"actor": "dr-lee"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SIGNED", decode(t, w)["document"].(map[string]any)["status"])

	// Signed is terminal.
	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/acknowledge", id),
		map[string]any{"actor": "dr-kim"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/addenda", id),
		map[string]any{"author": "dr-lee", "body": "technique clarified"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/addenda", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	addenda := decode(t, w)["addenda"].([]any)
	assert.Len(t, addenda, 1)
}

func TestAddendumBeforeSignedConflicts(t *testing.T) {
	server, policies := newTestServer(t, false)

	w := doJSON(t, server, http.MethodPost, "/api/v1/documents", submitBody(policies, "clear fields"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["document"].(map[string]any)["id"].(string)

	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/addenda", id),
		map[string]any{"author": "dr-lee", "body": "too early"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCorrelationIDHeader(t *testing.T) {
	server, _ := newTestServer(t, false)

	w := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}
