package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

const (
	matchFunctionName = "emit_property_matches"

	matchSystemPrompt = `You rank normalized property listings against a buyer profile. Score ` +
		`each listing from 0 to 1 on how well it fits the profile and explain the fit in one or ` +
		`two sentences. Only score listings that were provided; never invent listing ids.`
)

// matchSchema constrains the ranking reply to a list of scored entries
var matchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"matches": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"listing_id": {"type": "integer"},
					"score": {"type": "number"},
					"rationale": {"type": "string"}
				},
				"required": ["listing_id", "score", "rationale"]
			}
		}
	},
	"required": ["matches"]
}`)

// Matcher scores normalized records against the buyer profile in one
// structured call and returns them ranked best-first
type Matcher struct {
	gen        domain.Generator
	retryLimit int
}

// NewMatcher creates a matcher; retryLimit counts total attempts
func NewMatcher(gen domain.Generator, retryLimit int) *Matcher {
	if retryLimit <= 0 {
		retryLimit = 2
	}
	return &Matcher{gen: gen, retryLimit: retryLimit}
}

// Match asks for a ranking of the records against the profile. The returned
// entries are sorted by score descending regardless of the order the model
// produced. An empty record set short-circuits to an empty ranking.
func (m *Matcher) Match(ctx context.Context, profile map[string]any, records []domain.NormalizedRecord) ([]domain.MatchEntry, error) {
	if len(records) == 0 {
		return []domain.MatchEntry{}, nil
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	messages := []domain.Message{
		{Role: "system", Content: matchSystemPrompt},
		{Role: "system", Name: "buyer_profile", Content: string(profileJSON)},
		{Role: "user", Content: string(recordsJSON)},
	}

	fn := domain.FunctionSpec{
		Name:        matchFunctionName,
		Description: "Emit the scored matches for the supplied listings.",
		Parameters:  matchSchema,
	}

	var lastFailure string
	for attempt := 1; attempt <= m.retryLimit; attempt++ {
		payload, err := m.gen.GenerateStructured(ctx, messages, fn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastFailure = err.Error()
			continue
		}

		var reply struct {
			Matches []domain.MatchEntry `json:"matches"`
		}
		if err := json.Unmarshal(payload, &reply); err != nil {
			lastFailure = err.Error()
			messages = append(messages, domain.Message{
				Role:    "system",
				Content: "The previous reply was malformed. Reply with the matches object only.",
			})
			continue
		}

		sort.SliceStable(reply.Matches, func(i, j int) bool {
			return reply.Matches[i].Score > reply.Matches[j].Score
		})
		log.Printf("[MATCH] ranked %d/%d listings", len(reply.Matches), len(records))
		return reply.Matches, nil
	}

	return nil, fmt.Errorf("%w: ranking failed after %d attempts: %s", domain.ErrGenerationFailed, m.retryLimit, lastFailure)
}
