package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/usecase"
)

type fakePipeline struct {
	result *usecase.Result
	err    error
	calls  int
	opts   usecase.FetchOptions
}

func (p *fakePipeline) Run(ctx context.Context, profile map[string]any, opts usecase.FetchOptions) (*usecase.Result, error) {
	p.calls++
	p.opts = opts
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

// mapCache is a minimal domain.CacheRepository for handler tests
type mapCache struct {
	data map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.data[key]
	return ok, nil
}

func newTestRouter(pipeline PipelineRunner, cache domain.CacheRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(pipeline, cache, time.Minute, usecase.FetchOptions{FetchDetails: true})

	router := gin.New()
	router.GET("/health", handler.HealthCheck)
	router.POST("/api/v1/recommendations", handler.Recommend)
	return router
}

func postRecommendation(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/recommendations", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakePipeline{}, newMapCache())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRecommend_Success(t *testing.T) {
	pipeline := &fakePipeline{result: &usecase.Result{
		RunID:    "run-1",
		Params:   domain.QueryParams{"district": "10"},
		RawCount: 2,
		Matches:  []domain.MatchEntry{{ListingID: 1, Score: 0.9, Rationale: "fits"}},
	}}
	router := newTestRouter(pipeline, newMapCache())

	w := postRecommendation(t, router, `{"profile":{"location":"ponsonby"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Cached bool           `json:"cached"`
		Result usecase.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Cached)
	assert.Equal(t, "run-1", body.Result.RunID)
	assert.Equal(t, 1, pipeline.calls)
}

func TestRecommend_SecondCallServedFromCache(t *testing.T) {
	pipeline := &fakePipeline{result: &usecase.Result{RunID: "run-1"}}
	router := newTestRouter(pipeline, newMapCache())

	first := postRecommendation(t, router, `{"profile":{"location":"ponsonby"}}`)
	second := postRecommendation(t, router, `{"profile":{"location":"ponsonby"}}`)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), `"cached":true`)
	assert.Equal(t, 1, pipeline.calls)
}

func TestRecommend_DifferentBoundsBypassCache(t *testing.T) {
	pipeline := &fakePipeline{result: &usecase.Result{RunID: "run-1"}}
	router := newTestRouter(pipeline, newMapCache())

	postRecommendation(t, router, `{"profile":{"location":"ponsonby"}}`)
	postRecommendation(t, router, `{"profile":{"location":"ponsonby"},"max_records":5}`)

	assert.Equal(t, 2, pipeline.calls)
	assert.Equal(t, 5, pipeline.opts.MaxRecords)
	// Configured defaults survive the override
	assert.True(t, pipeline.opts.FetchDetails)
}

func TestRecommend_MissingProfile(t *testing.T) {
	pipeline := &fakePipeline{}
	router := newTestRouter(pipeline, newMapCache())

	w := postRecommendation(t, router, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, pipeline.calls)
}

func TestRecommend_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no location", domain.ErrNoLocation, http.StatusUnprocessableEntity},
		{"unmappable value", domain.ErrUnmappableValue, http.StatusUnprocessableEntity},
		{"fetch failed", domain.ErrFetchFailed, http.StatusBadGateway},
		{"api failure", domain.ErrAPIFailure, http.StatusBadGateway},
		{"normalization", domain.ErrNormalization, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakePipeline{err: tt.err}, newMapCache())

			w := postRecommendation(t, router, `{"profile":{"location":"ponsonby"}}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRecommend_NilCache(t *testing.T) {
	pipeline := &fakePipeline{result: &usecase.Result{RunID: "run-1"}}
	router := newTestRouter(pipeline, nil)

	w := postRecommendation(t, router, `{"profile":{"location":"ponsonby"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
