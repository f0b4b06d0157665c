package trademe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// Fixed endpoint for residential property search
	searchPath = "/Search/Property/Residential.json"

	// maxAttempts is the per-request retry budget. Exhausting it on a search
	// page surfaces domain.ErrFetchFailed.
	maxAttempts = 3

	// Backoff schedule. 429 gets a long fixed wait, 5xx a linearly growing
	// one, transport errors a short fixed one.
	rateLimitWait   = 60 * time.Second
	serverErrorStep = 5 * time.Second
	transientWait   = 2 * time.Second

	maxBodyBytes = 10 << 20
)

// Client handles communication with the Trade Me listings API
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	rateLimiter    *rate.Limiter
	sleep          func(time.Duration)
	debug          bool
}

// NewClient creates a new listings API client. Requests are shaped to roughly
// one every 500ms so detail fetches stay friendly to the remote service.
func NewClient(baseURL, consumerKey, consumerSecret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		rateLimiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		sleep:          time.Sleep,
	}
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

func (c *Client) debugLog(format string, args ...any) {
	if c.debug {
		log.Printf("[TRADEME] "+format, args...)
	}
}

// authHeader builds the app-only signed-session header. The credential
// material is opaque to the rest of the system.
func (c *Client) authHeader() string {
	return fmt.Sprintf(
		`OAuth oauth_consumer_key=%q, oauth_signature_method="PLAINTEXT", oauth_signature="%s&"`,
		c.consumerKey, c.consumerSecret,
	)
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}

	return resp, nil
}

// getWithRetry fetches reqURL applying the typed backoff policy:
// 429 waits 60s, 5xx waits 5s x attempt, a transport error waits 2s; each
// failure consumes one attempt from the budget. Any other non-200 status is
// not retried.
func (c *Client) getWithRetry(ctx context.Context, reqURL, label string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			lastErr = err
			log.Printf("[TRADEME] %s: request error (attempt %d): %v", label, attempt, err)
			c.sleep(transientWait)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrAPIFailure, readErr)
			log.Printf("[TRADEME] %s: read error (attempt %d): %v", label, attempt, readErr)
			c.sleep(transientWait)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status 429", domain.ErrAPIFailure)
			log.Printf("[TRADEME] %s: rate limited (attempt %d), backing off %s", label, attempt, rateLimitWait)
			c.sleep(rateLimitWait)
			continue
		case resp.StatusCode >= http.StatusInternalServerError:
			wait := serverErrorStep * time.Duration(attempt)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAPIFailure, resp.StatusCode)
			log.Printf("[TRADEME] %s: server error %d (attempt %d), retrying in %s", label, resp.StatusCode, attempt, wait)
			c.sleep(wait)
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrListingNotFound
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrAPIFailure, resp.StatusCode, string(body))
		}

		c.debugLog("%s: fetched %d bytes", label, len(body))
		return body, nil
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrFetchFailed, label, maxAttempts, lastErr)
}

// SearchPage fetches one page of residential search results
func (c *Client) SearchPage(ctx context.Context, params domain.QueryParams, page int) (*domain.SearchPage, error) {
	values := params.Values()
	values.Set("page", strconv.Itoa(page))
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, searchPath, values.Encode())

	body, err := c.getWithRetry(ctx, reqURL, fmt.Sprintf("search page %d", page))
	if err != nil {
		return nil, err
	}

	var result domain.SearchPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search page %d: %w", page, err)
	}
	result.Page = page

	return &result, nil
}

// ListingDetail fetches the full listing object for a single id, applying the
// same retry policy as SearchPage
func (c *Client) ListingDetail(ctx context.Context, id int64) (domain.RawListing, error) {
	reqURL := fmt.Sprintf("%s/Listings/%d.json", c.baseURL, id)

	body, err := c.getWithRetry(ctx, reqURL, fmt.Sprintf("listing %d", id))
	if err != nil {
		return nil, err
	}

	var listing domain.RawListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing %d: %w", id, err)
	}

	return listing, nil
}

// Metadata fetches one metadata category (Regions, PropertyTypes,
// SalesMethods) and returns the raw document. Callers cache the result; a
// metadata miss is cheap to retry at that level, so the budget here is the
// same shared policy.
func (c *Client) Metadata(ctx context.Context, category string) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/Metadata/%s.json", c.baseURL, category)

	body, err := c.getWithRetry(ctx, reqURL, "metadata "+category)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}
