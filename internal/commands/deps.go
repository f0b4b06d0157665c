package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/PeterSaffarian/replit-propertyrecommender/config"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/infrastructure/llm"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/infrastructure/metadata"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/infrastructure/trademe"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/usecase"
)

// buildPipeline wires the full acquisition pipeline from configuration. The
// reference metadata is loaded up front; a pipeline is never handed out with
// an empty taxonomy.
func buildPipeline(ctx context.Context, cfg *config.Config, refreshMetadata bool) (*usecase.Pipeline, error) {
	client := trademe.NewClient(cfg.TradeMe.BaseURL(), cfg.TradeMe.ConsumerKey, cfg.TradeMe.ConsumerSecret)
	store := metadata.NewStore(client, cfg.TradeMe.MetadataCache)

	taxonomy, err := usecase.LoadTaxonomy(ctx, store, refreshMetadata)
	if err != nil {
		return nil, fmt.Errorf("load location taxonomy: %w", err)
	}
	propertyTypes, err := store.PropertyTypes(ctx, refreshMetadata)
	if err != nil {
		return nil, fmt.Errorf("load property types: %w", err)
	}
	saleMethods, err := store.SaleMethods(ctx, refreshMetadata)
	if err != nil {
		return nil, fmt.Errorf("load sale methods: %w", err)
	}

	generator := llm.NewGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature)

	agent, err := usecase.NewProfileAgent(generator)
	if err != nil {
		return nil, fmt.Errorf("profile agent: %w", err)
	}

	schemaJSON, err := os.ReadFile(cfg.Normalizer.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("read record schema: %w", err)
	}
	normalizer, err := usecase.NewNormalizer(generator, schemaJSON, usecase.NormalizerConfig{
		RetryLimit:        cfg.Normalizer.RetryLimit,
		SkipFailedRecords: cfg.Normalizer.OnRecordFailure == "skip",
	})
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}

	builder := usecase.NewBuilder(taxonomy, propertyTypes, saleMethods)

	return usecase.NewPipeline(
		agent,
		builder,
		usecase.NewConfirmer(generator, builder, cfg.Confirm.MaxAttempts),
		usecase.NewFetcher(client, cfg.Fetcher.DetailConcurrency),
		normalizer,
		usecase.NewMatcher(generator, cfg.Normalizer.RetryLimit),
		cfg.Pipeline.OutputDir,
	), nil
}

// fetchOptions maps the configured bounds onto one run's options
func fetchOptions(cfg *config.Config) usecase.FetchOptions {
	return usecase.FetchOptions{
		MaxPages:     cfg.Fetcher.MaxPages,
		MaxRecords:   cfg.Fetcher.MaxRecords,
		FetchDetails: cfg.Fetcher.FetchDetails,
	}
}
