package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

// artifact file names written per run
const (
	artifactSearchQuery = "search_query.json"
	artifactRawListings = "raw_listings.json"
	artifactNormalized  = "normalized_listings.json"
	artifactMatches     = "matches.json"
)

// profileLocationKeys are consulted, in order, when the distilled form
// carries no location at all
var profileLocationKeys = []string{"location", "city", "suburb", "area"}

// Pipeline runs the full acquisition flow: distill the profile, build and
// confirm the query, fetch, normalize, and rank. Intermediate results are
// written as pretty-printed JSON artifacts for inspection.
type Pipeline struct {
	agent      *ProfileAgent
	builder    *Builder
	confirmer  *Confirmer
	fetcher    *Fetcher
	normalizer *Normalizer
	matcher    *Matcher
	outputDir  string
}

// NewPipeline wires the stages together
func NewPipeline(agent *ProfileAgent, builder *Builder, confirmer *Confirmer, fetcher *Fetcher, normalizer *Normalizer, matcher *Matcher, outputDir string) *Pipeline {
	return &Pipeline{
		agent:      agent,
		builder:    builder,
		confirmer:  confirmer,
		fetcher:    fetcher,
		normalizer: normalizer,
		matcher:    matcher,
		outputDir:  outputDir,
	}
}

// Result is the outcome of one pipeline run
type Result struct {
	RunID    string                    `json:"run_id"`
	Params   domain.QueryParams        `json:"params"`
	Hints    domain.MatchHintSet       `json:"match_hints"`
	RawCount int                       `json:"raw_count"`
	Records  []domain.NormalizedRecord `json:"records"`
	Matches  []domain.MatchEntry       `json:"matches"`
}

// Run executes the pipeline for one buyer profile. A profile that yields no
// location term at all fails with domain.ErrNoLocation before any network
// traffic happens.
func (p *Pipeline) Run(ctx context.Context, profile map[string]any, opts FetchOptions) (*Result, error) {
	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: empty profile", domain.ErrInvalidRequest)
	}

	runID := uuid.NewString()
	log.Printf("[PIPELINE] run %s starting", runID)

	form, err := p.agent.BuildForm(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("distill profile: %w", err)
	}

	if form.Region == "" && form.District == "" && form.Suburb == "" {
		fallback := profileLocation(profile)
		if fallback == "" {
			return nil, fmt.Errorf("%w: profile names no searchable place", domain.ErrNoLocation)
		}
		log.Printf("[PIPELINE] form has no location, falling back to profile term %q", fallback)
		form.District = fallback
	}

	params, hints, err := p.builder.Build(form)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	params, hints, err = p.confirmer.Confirm(ctx, form, params, hints)
	if err != nil {
		return nil, fmt.Errorf("confirm query: %w", err)
	}
	p.writeArtifact(artifactSearchQuery, map[string]any{
		"run_id": runID,
		"form":   form,
		"params": params,
		"hints":  hints,
	})

	raw, err := p.fetcher.FetchAll(ctx, params, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	p.writeArtifact(artifactRawListings, raw)

	records, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalize listings: %w", err)
	}
	p.writeArtifact(artifactNormalized, records)

	matches, err := p.matcher.Match(ctx, profile, records)
	if err != nil {
		return nil, fmt.Errorf("rank listings: %w", err)
	}
	p.writeArtifact(artifactMatches, matches)

	log.Printf("[PIPELINE] run %s done: %d raw, %d normalized, %d ranked",
		runID, len(raw), len(records), len(matches))

	return &Result{
		RunID:    runID,
		Params:   params,
		Hints:    hints,
		RawCount: len(raw),
		Records:  records,
		Matches:  matches,
	}, nil
}

// profileLocation picks the first usable location term from the raw profile
func profileLocation(profile map[string]any) string {
	for _, key := range profileLocationKeys {
		if v, ok := profile[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// writeArtifact persists one intermediate result. Artifacts exist for
// inspection only, so a write failure is logged rather than failing the run.
func (p *Pipeline) writeArtifact(name string, value any) {
	if p.outputDir == "" {
		return
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		log.Printf("[PIPELINE] artifact dir: %v", err)
		return
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Printf("[PIPELINE] artifact %s: %v", name, err)
		return
	}
	if err := os.WriteFile(filepath.Join(p.outputDir, name), data, 0o644); err != nil {
		log.Printf("[PIPELINE] artifact %s: %v", name, err)
	}
}
