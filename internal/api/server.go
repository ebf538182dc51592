// Package api exposes the gate over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/middleware"
	"github.com/scribe-safety-gate/internal/review"
	"github.com/scribe-safety-gate/internal/service"
)

// Server represents the HTTP server
type Server struct {
	gatekeeper *service.Gatekeeper
	config     domain.ServerConfig
	production bool
	router     *gin.Engine
	server     *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(gatekeeper *service.Gatekeeper, config domain.ServerConfig, production bool) *Server {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.RequestTimeout(config.RequestTimeout))
	router.Use(middleware.RateLimit(config.RateLimit, config.RateBurst))

	server := &Server{
		gatekeeper: gatekeeper,
		config:     config,
		production: production,
		router:     router,
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/documents", s.handleSubmit)
		v1.GET("/documents/:id", s.handleGetDocument)
		v1.POST("/documents/:id/acknowledge", s.handleAcknowledge)
		v1.POST("/documents/:id/sign", s.handleSign)
		v1.POST("/documents/:id/addenda", s.handleAddAddendum)
		v1.GET("/documents/:id/addenda", s.handleListAddenda)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.gatekeeper.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":         "degraded",
			"timestamp":      time.Now().UTC(),
			"policy_version": s.gatekeeper.PolicyVersion(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"policy_version": s.gatekeeper.PolicyVersion(),
	})
}

type submitRequest struct {
	Kind     string `json:"kind" binding:"required"`
	Language string `json:"language" binding:"required"`
	Document string `json:"document" binding:"required"`
}

// handleSubmit validates a candidate document and registers it for review.
func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "kind, language and document are required",
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	doc := domain.CandidateDocument{
		RawText:  req.Document,
		Kind:     domain.DocumentKind(req.Kind),
		Language: domain.Language(req.Language),
	}

	record, verr, err := s.gatekeeper.Submit(c.Request.Context(), doc, c.GetString("correlation_id"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	if verr != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"accepted":       false,
			"code":           string(verr.Code),
			"message":        s.gatekeeper.RejectionMessage(verr),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"accepted": true,
		"document": recordResponse(record),
	})
}

// handleGetDocument returns the review state of a document.
func (s *Server) handleGetDocument(c *gin.Context) {
	record, err := s.gatekeeper.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.reviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": recordResponse(record)})
}

type actorRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// handleAcknowledge records a clinician review.
func (s *Server) handleAcknowledge(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}

	record, err := s.gatekeeper.Acknowledge(c.Request.Context(), c.Param("id"), req.Actor, c.GetString("correlation_id"))
	if err != nil {
		s.reviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": recordResponse(record)})
}

// handleSign finalizes a reviewed document.
func (s *Server) handleSign(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}

	record, err := s.gatekeeper.Sign(c.Request.Context(), c.Param("id"), req.Actor, c.GetString("correlation_id"))
	if err != nil {
		s.reviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": recordResponse(record)})
}

type addendumRequest struct {
	Author string `json:"author" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// handleAddAddendum attaches a correction to a signed document.
func (s *Server) handleAddAddendum(c *gin.Context) {
	var req addendumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author and body are required"})
		return
	}

	addendum, err := s.gatekeeper.AddAddendum(c.Request.Context(), c.Param("id"), req.Author, req.Body, c.GetString("correlation_id"))
	if err != nil {
		s.reviewError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"addendum": addendum})
}

// handleListAddenda lists the addenda of a document.
func (s *Server) handleListAddenda(c *gin.Context) {
	addenda, err := s.gatekeeper.Addenda(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.reviewError(c, err)
		return
	}
	if addenda == nil {
		addenda = []*review.Addendum{}
	}
	c.JSON(http.StatusOK, gin.H{"addenda": addenda})
}

// reviewError maps review gate errors onto HTTP statuses.
func (s *Server) reviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, review.ErrAlreadyReviewed),
		errors.Is(err, review.ErrNotReviewed),
		errors.Is(err, review.ErrAlreadySigned),
		errors.Is(err, review.ErrNotSigned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.internalError(c, err)
	}
}

// internalError hides internal failures from callers in production.
func (s *Server) internalError(c *gin.Context, err error) {
	message := err.Error()
	if s.production {
		message = "internal error"
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":          message,
		"correlation_id": c.GetString("correlation_id"),
	})
}

// recordResponse shapes a review record for API responses.
func recordResponse(record *review.Record) gin.H {
	return gin.H{
		"id":             record.ID,
		"kind":           string(record.Kind),
		"language":       string(record.Language),
		"status":         string(record.Status),
		"policy_version": record.PolicyVersion,
		"reviewed_by":    record.ReviewedBy,
		"reviewed_at":    record.ReviewedAt,
		"signed_by":      record.SignedBy,
		"signed_at":      record.SignedAt,
		"created_at":     record.CreatedAt,
		"updated_at":     record.UpdatedAt,
	}
}
