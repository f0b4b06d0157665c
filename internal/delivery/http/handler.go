package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/usecase"
)

// PipelineRunner is the slice of the pipeline the handler needs
type PipelineRunner interface {
	Run(ctx context.Context, profile map[string]any, opts usecase.FetchOptions) (*usecase.Result, error)
}

// RecommendationRequest is the body of a recommendation call. Fetch bounds
// default to the server configuration when omitted.
type RecommendationRequest struct {
	Profile    map[string]any `json:"profile" binding:"required"`
	MaxPages   int            `json:"max_pages"`
	MaxRecords int            `json:"max_records"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pipeline    PipelineRunner
	cache       domain.CacheRepository
	cacheTTL    time.Duration
	defaultOpts usecase.FetchOptions
}

// NewHandler creates a new HTTP handler
func NewHandler(pipeline PipelineRunner, cache domain.CacheRepository, cacheTTL time.Duration, defaultOpts usecase.FetchOptions) *Handler {
	return &Handler{
		pipeline:    pipeline,
		cache:       cache,
		cacheTTL:    cacheTTL,
		defaultOpts: defaultOpts,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "property-recommender",
		"version": "1.0.0",
	})
}

// Recommend runs the acquisition pipeline for a buyer profile. Identical
// requests within the cache TTL are served from cache; a pipeline run is
// expensive and hits two external APIs.
func (h *Handler) Recommend(c *gin.Context) {
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must include a profile object"})
		return
	}

	opts := h.defaultOpts
	if req.MaxPages > 0 {
		opts.MaxPages = req.MaxPages
	}
	if req.MaxRecords > 0 {
		opts.MaxRecords = req.MaxRecords
	}

	key := requestCacheKey(req.Profile, opts)
	if h.cache != nil {
		if cached, err := h.cache.Get(c.Request.Context(), key); err == nil {
			c.JSON(http.StatusOK, gin.H{"cached": true, "result": cached})
			return
		}
	}

	result, err := h.pipeline.Run(c.Request.Context(), req.Profile, opts)
	if err != nil {
		status := statusFor(err)
		log.Printf("[HTTP] recommendation failed (%d): %v", status, err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), key, result, h.cacheTTL); err != nil {
			log.Printf("[HTTP] cache store failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"cached": false, "result": result})
}

// statusFor maps pipeline errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoLocation), errors.Is(err, domain.ErrUnmappableValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFetchFailed), errors.Is(err, domain.ErrAPIFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// requestCacheKey derives a stable key from the profile and fetch bounds.
// Map iteration order does not leak in: encoding/json sorts object keys.
func requestCacheKey(profile map[string]any, opts usecase.FetchOptions) string {
	payload, err := json.Marshal(struct {
		Profile map[string]any       `json:"profile"`
		Opts    usecase.FetchOptions `json:"opts"`
	}{profile, opts})
	if err != nil {
		return "recommendation:unkeyable"
	}
	sum := sha256.Sum256(payload)
	return "recommendation:" + hex.EncodeToString(sum[:])
}
