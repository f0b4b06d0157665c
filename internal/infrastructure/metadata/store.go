package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

// Metadata categories as named by the listings API
const (
	categoryRegions       = "Regions"
	categoryPropertyTypes = "PropertyTypes"
	categorySaleMethods   = "SalesMethods"
)

// apiSource is the slice of the listings client the store needs
type apiSource interface {
	Metadata(ctx context.Context, category string) (json.RawMessage, error)
}

// Store caches metadata documents in a single JSON file keyed by category.
// Categories are fetched on cache miss or explicit refresh. Writes replace
// the file atomically so concurrent readers never observe a partial document.
type Store struct {
	api  apiSource
	path string
	mu   sync.Mutex
}

// NewStore creates a metadata store backed by the file at path
func NewStore(api apiSource, path string) *Store {
	return &Store{api: api, path: path}
}

// Regions returns the full location taxonomy (regions with districts and suburbs)
func (s *Store) Regions(ctx context.Context, forceRefresh bool) ([]domain.Region, error) {
	raw, err := s.get(ctx, categoryRegions, forceRefresh)
	if err != nil {
		return nil, err
	}

	var regions []domain.Region
	if err := json.Unmarshal(raw, &regions); err != nil {
		return nil, fmt.Errorf("failed to decode %s metadata: %w", categoryRegions, err)
	}
	return regions, nil
}

// PropertyTypes returns the property type vocabulary
func (s *Store) PropertyTypes(ctx context.Context, forceRefresh bool) ([]domain.VocabEntry, error) {
	return s.vocab(ctx, categoryPropertyTypes, forceRefresh)
}

// SaleMethods returns the sale method vocabulary
func (s *Store) SaleMethods(ctx context.Context, forceRefresh bool) ([]domain.VocabEntry, error) {
	return s.vocab(ctx, categorySaleMethods, forceRefresh)
}

func (s *Store) vocab(ctx context.Context, category string, forceRefresh bool) ([]domain.VocabEntry, error) {
	raw, err := s.get(ctx, category, forceRefresh)
	if err != nil {
		return nil, err
	}

	var entries []domain.VocabEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %s metadata: %w", category, err)
	}
	return entries, nil
}

// get returns the cached document for category, fetching and persisting it on
// miss or forced refresh
func (s *Store) get(ctx context.Context, category string, forceRefresh bool) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.read()
	if !forceRefresh {
		if raw, ok := cache[category]; ok {
			return raw, nil
		}
	}

	raw, err := s.api.Metadata(ctx, category)
	if err != nil {
		return nil, err
	}

	cache[category] = raw
	if err := s.write(cache); err != nil {
		// A stale or missing cache file is recoverable; the fetched data is not
		log.Printf("[METADATA] failed to persist cache: %v", err)
	}

	return raw, nil
}

// read loads the cache file, treating a missing or corrupt file as empty
func (s *Store) read() map[string]json.RawMessage {
	cache := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return cache
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return make(map[string]json.RawMessage)
	}
	return cache
}

// write persists the cache via a temp file and rename so readers never see a
// partially written document
func (s *Store) write(cache map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
