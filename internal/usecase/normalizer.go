package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

const (
	defaultNormalizeAttempts = 2

	normalizeFunctionName = "emit_property_record"

	normalizeSystemPrompt = `You convert one raw property listing into a clean record matching ` +
		`the provided JSON schema exactly. Copy values faithfully; do not invent data. When the ` +
		`listing lacks a value, use null only if the schema allows it for that field. Reply with ` +
		`a single JSON object and nothing else.`
)

// NormalizerConfig tunes the normalizer
type NormalizerConfig struct {
	// RetryLimit is the total attempts per record, including the first
	RetryLimit int

	// SkipFailedRecords drops a record that exhausts its attempts instead of
	// aborting the batch
	SkipFailedRecords bool
}

// Normalizer converts raw listings into schema-conforming records one at a
// time. Each record gets a bounded generate/validate loop: a reply that fails
// validation is fed back to the model as a corrective message, and only a
// reply that validates is accepted.
type Normalizer struct {
	gen        domain.Generator
	schema     *jsonschema.Schema
	resolved   *jsonschema.Resolved
	schemaJSON json.RawMessage
	retryLimit int
	skipFailed bool
}

// NewNormalizer parses and resolves the target schema once up front
func NewNormalizer(gen domain.Generator, schemaJSON []byte, cfg NormalizerConfig) (*Normalizer, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}

	retryLimit := cfg.RetryLimit
	if retryLimit <= 0 {
		retryLimit = defaultNormalizeAttempts
	}

	return &Normalizer{
		gen:        gen,
		schema:     &schema,
		resolved:   resolved,
		schemaJSON: json.RawMessage(schemaJSON),
		retryLimit: retryLimit,
		skipFailed: cfg.SkipFailedRecords,
	}, nil
}

// Normalize processes the batch in order. By default a record that exhausts
// its attempts aborts the whole batch with domain.ErrNormalization; with
// SkipFailedRecords set, it is dropped and the batch continues.
func (n *Normalizer) Normalize(ctx context.Context, raw []domain.RawListing) ([]domain.NormalizedRecord, error) {
	records := make([]domain.NormalizedRecord, 0, len(raw))

	for i, listing := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Printf("[NORMALIZE] record %d/%d", i+1, len(raw))

		record, err := n.normalizeOne(ctx, listing)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if n.skipFailed {
				log.Printf("[NORMALIZE] record %d/%d skipped: %v", i+1, len(raw), err)
				continue
			}
			return nil, fmt.Errorf("record %d/%d: %w", i+1, len(raw), err)
		}
		records = append(records, record)
	}

	log.Printf("[NORMALIZE] %d/%d records normalized", len(records), len(raw))
	return records, nil
}

// normalizeOne runs the generate/validate loop for a single listing
func (n *Normalizer) normalizeOne(ctx context.Context, listing domain.RawListing) (domain.NormalizedRecord, error) {
	rawJSON, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("encode raw listing: %w", err)
	}

	messages := []domain.Message{
		{Role: "system", Content: normalizeSystemPrompt},
		{Role: "system", Name: "target_schema", Content: string(n.schemaJSON)},
		{Role: "user", Content: string(rawJSON)},
	}

	fn := domain.FunctionSpec{
		Name:        normalizeFunctionName,
		Description: "Emit the normalized property record for the supplied raw listing.",
		Parameters:  n.schemaJSON,
	}

	var lastFailure string
	for attempt := 1; attempt <= n.retryLimit; attempt++ {
		payload, err := n.gen.GenerateStructured(ctx, messages, fn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastFailure = err.Error()
			messages = append(messages, domain.Message{
				Role:    "system",
				Content: "The previous reply was not usable. Reply with a single JSON object matching the schema and nothing else.",
			})
			continue
		}

		record, err := parseRecordPayload(payload)
		if err != nil {
			lastFailure = err.Error()
			messages = append(messages, domain.Message{
				Role:    "system",
				Content: fmt.Sprintf("The previous reply was not a single JSON object (%v). Reply with exactly one JSON object.", err),
			})
			continue
		}

		n.applyDefaults(record)

		if err := n.resolved.Validate(map[string]any(record)); err != nil {
			lastFailure = err.Error()
			log.Printf("[NORMALIZE] attempt %d/%d failed validation: %v", attempt, n.retryLimit, err)
			messages = append(messages, domain.Message{
				Role:    "system",
				Content: fmt.Sprintf("The previous reply failed schema validation (%v). Correct the JSON and reply again.", err),
			})
			continue
		}

		return record, nil
	}

	return nil, fmt.Errorf("%w: giving up after %d attempts: %s", domain.ErrNormalization, n.retryLimit, lastFailure)
}

// parseRecordPayload decodes a structured reply into a record. A
// single-element array is unwrapped; anything but one object is an error.
func parseRecordPayload(payload json.RawMessage) (domain.NormalizedRecord, error) {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, err
	}

	if arr, ok := value.([]any); ok && len(arr) == 1 {
		value = arr[0]
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errors.New("expected a single JSON object")
	}
	return domain.NormalizedRecord(obj), nil
}

// typePreference orders schema types for default-filling when a property
// allows several
var typePreference = []string{"array", "object", "string", "integer", "number", "boolean", "null"}

// applyDefaults repairs top-level properties whose value is missing or of a
// wrong type, substituting the canonical zero of the first allowed type.
// null passes only when the property explicitly allows it, and booleans are
// never considered valid integers or vice versa.
func (n *Normalizer) applyDefaults(record domain.NormalizedRecord) {
	for name, prop := range n.schema.Properties {
		types := allowedTypes(prop)
		if len(types) == 0 {
			continue
		}

		value, present := record[name]

		if value == nil {
			if containsType(types, "null") {
				continue
			}
		} else if present && matchesAnyType(value, types) {
			continue
		}

		record[name] = defaultFor(types)
	}
}

// allowedTypes returns the declared type list for a property
func allowedTypes(s *jsonschema.Schema) []string {
	if len(s.Types) > 0 {
		return s.Types
	}
	if s.Type != "" {
		return []string{s.Type}
	}
	return nil
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func matchesAnyType(value any, types []string) bool {
	for _, t := range types {
		if matchesType(value, t) {
			return true
		}
	}
	return false
}

// matchesType reports whether a decoded JSON value already satisfies a
// schema type name
func matchesType(value any, t string) bool {
	switch t {
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case "number":
		_, ok := value.(float64)
		return ok
	case "null":
		return value == nil
	default:
		return false
	}
}

// defaultFor builds the canonical zero for the first allowed type in
// preference order. Composites are freshly allocated so records never share
// a default value.
func defaultFor(types []string) any {
	for _, t := range typePreference {
		if !containsType(types, t) {
			continue
		}
		switch t {
		case "array":
			return []any{}
		case "object":
			return map[string]any{}
		case "string":
			return ""
		case "integer", "number":
			return float64(0)
		case "boolean":
			return false
		case "null":
			return nil
		}
	}
	return nil
}
