package usecase

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

//go:embed search_form_schema.json
var searchFormSchemaJSON []byte

const (
	formFunctionName = "emit_search_form"

	agentSystemPrompt = `You distill a buyer profile into a structured property search form. ` +
		`Extract only what the profile states or clearly implies: location terms as free text, ` +
		`price and room bounds as integers, property types and sale methods as plain names. ` +
		`Use null for anything the profile does not constrain. Never invent preferences.`
)

// ProfileAgent distills a free-form buyer profile into a search form via one
// structured generation call
type ProfileAgent struct {
	gen      domain.Generator
	resolved *jsonschema.Resolved
}

// NewProfileAgent creates an agent; the embedded form schema is resolved once
func NewProfileAgent(gen domain.Generator) (*ProfileAgent, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(searchFormSchemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("parse form schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve form schema: %w", err)
	}
	return &ProfileAgent{gen: gen, resolved: resolved}, nil
}

// BuildForm produces the search form for one profile. The reply is validated
// against the form schema before it is trusted.
func (a *ProfileAgent) BuildForm(ctx context.Context, profile map[string]any) (*domain.SearchForm, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	payload, err := a.gen.GenerateStructured(ctx,
		[]domain.Message{
			{Role: "system", Content: agentSystemPrompt},
			{Role: "user", Content: string(profileJSON)},
		},
		domain.FunctionSpec{
			Name:        formFunctionName,
			Description: "Emit the structured search form distilled from the buyer profile.",
			Parameters:  json.RawMessage(searchFormSchemaJSON),
		},
	)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed search form: %v", domain.ErrGenerationFailed, err)
	}
	if err := a.resolved.Validate(decoded); err != nil {
		return nil, fmt.Errorf("%w: search form failed validation: %v", domain.ErrGenerationFailed, err)
	}

	var form domain.SearchForm
	if err := json.Unmarshal(payload, &form); err != nil {
		return nil, fmt.Errorf("%w: search form decode: %v", domain.ErrGenerationFailed, err)
	}

	log.Printf("[AGENT] search form distilled (region=%q district=%q suburb=%q)",
		form.Region, form.District, form.Suburb)
	return &form, nil
}
