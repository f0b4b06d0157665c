package domain

// RawListing is an opaque listing payload from the search API. No invariants
// are enforced on it; it is passed through unmodified to the normalizer.
type RawListing map[string]any

// ListingID extracts the listing identifier from a raw payload. JSON numbers
// unmarshal as float64, so both representations are accepted.
func (l RawListing) ListingID() (int64, bool) {
	switch v := l["ListingId"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// SearchPage is one page of search results
type SearchPage struct {
	List       []RawListing `json:"List"`
	TotalCount int          `json:"TotalCount"`
	Page       int          `json:"Page"`
	PageSize   int          `json:"PageSize"`
}

// NormalizedRecord is a listing record conforming to the target schema after
// default-filling. A record is either fully valid or its processing fails;
// partial records are never produced.
type NormalizedRecord map[string]any

// MatchEntry is one scored listing from the match-reasoning stage
type MatchEntry struct {
	ListingID int64   `json:"listing_id"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}
