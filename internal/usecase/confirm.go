package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

const (
	defaultConfirmAttempts = 2

	verdictFunctionName = "submit_location_verdict"

	confirmSystemPrompt = `You review how free-text location terms were matched against a ` +
		`location reference tree. Approve the matches when each resolved candidate plausibly ` +
		`refers to the same place as the input term. When a match is wrong, reject and supply ` +
		`corrected terms. Correction keys are "region", "district" and "suburb"; values are ` +
		`place names, not ids. Only include keys you want changed.`
)

// verdictSchema constrains the reviewer reply to an approval flag plus an
// optional correction map
var verdictSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"approved": {"type": "boolean"},
		"correction": {
			"type": "object",
			"properties": {
				"region": {"type": "string"},
				"district": {"type": "string"},
				"suburb": {"type": "string"}
			},
			"additionalProperties": false
		}
	},
	"required": ["approved"]
}`)

type verdict struct {
	Approved   bool              `json:"approved"`
	Correction map[string]string `json:"correction"`
}

// Confirmer runs the location matches past a reviewing model before the
// search executes. It is a guard rail, not a gate: a run never fails because
// confirmation misbehaved, it proceeds with the best parameters built so far.
type Confirmer struct {
	gen         domain.Generator
	builder     *Builder
	maxAttempts int
}

// NewConfirmer creates a confirmer with the given attempt ceiling
func NewConfirmer(gen domain.Generator, builder *Builder, maxAttempts int) *Confirmer {
	if maxAttempts <= 0 {
		maxAttempts = defaultConfirmAttempts
	}
	return &Confirmer{gen: gen, builder: builder, maxAttempts: maxAttempts}
}

// Confirm submits the match hints for review. An approved verdict returns the
// parameters unchanged. A rejection with corrections rewrites the affected
// form fields and rebuilds, consuming one attempt; the rebuilt result is
// reviewed on the next attempt. A rejection without corrections, or an
// exhausted attempt budget, returns the current parameters as-is.
//
// A rebuild failure (an unmappable value introduced by a correction) is the
// one hard error: it is surfaced rather than papered over.
func (c *Confirmer) Confirm(ctx context.Context, form *domain.SearchForm, params domain.QueryParams, hints domain.MatchHintSet) (domain.QueryParams, domain.MatchHintSet, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		v, err := c.review(ctx, hints)
		if err != nil {
			if ctx.Err() != nil {
				return params, hints, ctx.Err()
			}
			log.Printf("[CONFIRM] attempt %d/%d failed: %v", attempt, c.maxAttempts, err)
			continue
		}

		if v.Approved {
			log.Printf("[CONFIRM] matches approved on attempt %d", attempt)
			return params, hints, nil
		}

		if len(v.Correction) == 0 {
			log.Printf("[CONFIRM] rejected without corrections, continuing with current parameters")
			return params, hints, nil
		}

		log.Printf("[CONFIRM] attempt %d rejected, applying %d correction(s)", attempt, len(v.Correction))

		corrected := form.Clone()
		for field, value := range v.Correction {
			switch field {
			case "region":
				corrected.Region = value
			case "district":
				corrected.District = value
			case "suburb":
				corrected.Suburb = value
			default:
				log.Printf("[CONFIRM] ignoring correction for unknown field %q", field)
			}
		}

		newParams, newHints, err := c.builder.Build(corrected)
		if err != nil {
			return params, hints, fmt.Errorf("rebuild after correction: %w", err)
		}

		*form = *corrected
		params, hints = newParams, newHints
	}

	log.Printf("[CONFIRM] attempt budget exhausted, continuing with current parameters")
	return params, hints, nil
}

// review asks the model for a verdict on one hint set
func (c *Confirmer) review(ctx context.Context, hints domain.MatchHintSet) (*verdict, error) {
	summary, err := json.Marshal(map[string]domain.MatchHint{
		"region":   hints.Region,
		"district": hints.District,
		"suburb":   hints.Suburb,
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.gen.GenerateStructured(ctx,
		[]domain.Message{
			{Role: "system", Content: confirmSystemPrompt},
			{Role: "user", Content: string(summary)},
		},
		domain.FunctionSpec{
			Name:        verdictFunctionName,
			Description: "Submit the verdict on the location matches.",
			Parameters:  verdictSchema,
		},
	)
	if err != nil {
		return nil, err
	}

	var v verdict
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("malformed verdict: %v", err)
	}
	return &v, nil
}
