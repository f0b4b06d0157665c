package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ListingsClient defines the interface for the external listings search API
type ListingsClient interface {
	// SearchPage fetches one page of search results, retrying transient
	// failures internally within a bounded budget
	SearchPage(ctx context.Context, params QueryParams, page int) (*SearchPage, error)

	// ListingDetail fetches the full listing object for a single id under the
	// same retry policy as SearchPage
	ListingDetail(ctx context.Context, id int64) (RawListing, error)
}

// MetadataSource provides the reference datasets the parameter builder
// resolves against. Implementations cache aggressively; forceRefresh bypasses
// the cache.
type MetadataSource interface {
	Regions(ctx context.Context, forceRefresh bool) ([]Region, error)
	PropertyTypes(ctx context.Context, forceRefresh bool) ([]VocabEntry, error)
	SaleMethods(ctx context.Context, forceRefresh bool) ([]VocabEntry, error)
}

// Message is one role-tagged message for the text-generation capability
type Message struct {
	Role    string
	Name    string
	Content string
}

// FunctionSpec constrains a generation call to emit a single structured
// object matching Parameters (a JSON Schema document)
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Generator is the abstract text-generation capability. GenerateStructured
// forces a structured reply (function-call discipline) and returns the raw
// arguments payload; callers own parsing and validation.
type Generator interface {
	GenerateStructured(ctx context.Context, messages []Message, fn FunctionSpec) (json.RawMessage, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
