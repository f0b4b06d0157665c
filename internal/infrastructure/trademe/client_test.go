package trademe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestClient builds a client pointed at a test server with rate shaping
// disabled and sleeps recorded instead of executed.
func newTestClient(baseURL string) (*Client, *[]time.Duration) {
	client := NewClient(baseURL, "test-key", "test-secret")
	client.rateLimiter = rate.NewLimiter(rate.Inf, 0)

	var waits []time.Duration
	client.sleep = func(d time.Duration) {
		waits = append(waits, d)
	}
	return client, &waits
}

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.example.com", "key", "secret")

	assert.NotNil(t, client)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSearchPage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Search/Property/Residential.json", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "123", r.URL.Query().Get("district"))
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="test-key"`)

		page := domain.SearchPage{
			List:       []domain.RawListing{{"ListingId": float64(11)}, {"ListingId": float64(12)}},
			TotalCount: 45,
			PageSize:   20,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	result, err := client.SearchPage(context.Background(), domain.QueryParams{"district": "123"}, 2)

	require.NoError(t, err)
	assert.Len(t, result.List, 2)
	assert.Equal(t, 45, result.TotalCount)
	assert.Equal(t, 2, result.Page)
}

func TestSearchPage_RateLimited_BacksOffSixtySeconds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(domain.SearchPage{
			List:       []domain.RawListing{{"ListingId": float64(7)}},
			TotalCount: 1,
			PageSize:   20,
		})
	}))
	defer server.Close()

	client, waits := newTestClient(server.URL)
	result, err := client.SearchPage(context.Background(), domain.QueryParams{}, 1)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, *waits)
	assert.Len(t, result.List, 1)
}

func TestSearchPage_ServerError_LinearBackoff(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(domain.SearchPage{TotalCount: 0, PageSize: 20})
	}))
	defer server.Close()

	client, waits := newTestClient(server.URL)
	_, err := client.SearchPage(context.Background(), domain.QueryParams{}, 1)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *waits)
}

func TestSearchPage_BudgetExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	result, err := client.SearchPage(context.Background(), domain.QueryParams{}, 1)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Equal(t, 3, attempts)
}

func TestSearchPage_ClientError_NoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, waits := newTestClient(server.URL)
	_, err := client.SearchPage(context.Background(), domain.QueryParams{}, 1)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrFetchFailed)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *waits)
}

func TestSearchPage_TransportError_ShortWait(t *testing.T) {
	client, waits := newTestClient("http://127.0.0.1:1")
	_, err := client.SearchPage(context.Background(), domain.QueryParams{}, 1)

	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, *waits)
}

func TestSearchPage_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	_, err := client.SearchPage(context.Background(), domain.QueryParams{}, 1)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestListingDetail_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Listings/42.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"ListingId": 42,
			"Title":     "Sunny three bedroom villa",
		})
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	listing, err := client.ListingDetail(context.Background(), 42)

	require.NoError(t, err)
	id, ok := listing.ListingID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestListingDetail_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	listing, err := client.ListingDetail(context.Background(), 999)

	assert.Nil(t, listing)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestMetadata_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Metadata/Regions.json", r.URL.Path)
		w.Write([]byte(`[{"LocalityId":1,"Name":"Auckland","Districts":[]}]`))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	raw, err := client.Metadata(context.Background(), "Regions")

	require.NoError(t, err)

	var regions []domain.Region
	require.NoError(t, json.Unmarshal(raw, &regions))
	assert.Equal(t, "Auckland", regions[0].Name)
}

func TestSearchPage_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SearchPage(ctx, domain.QueryParams{}, 1)
	assert.Error(t, err)
}
