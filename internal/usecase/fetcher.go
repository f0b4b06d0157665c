package usecase

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

// FetchOptions bounds one acquisition run. Zero values mean unbounded.
type FetchOptions struct {
	// MaxPages caps how many search pages are requested
	MaxPages int

	// MaxRecords truncates the collected set after the page that crossed the
	// limit; a page is never requested partially
	MaxRecords int

	// FetchDetails enables the per-listing detail phase after pagination
	FetchDetails bool
}

// Fetcher drains the paginated search endpoint and optionally upgrades each
// summary row to its full listing object. Per-request retry policy lives in
// the client; the fetcher owns pagination, termination and the skip-on-failure
// rule for details.
type Fetcher struct {
	client            domain.ListingsClient
	detailConcurrency int
}

// NewFetcher creates a fetcher; detailConcurrency bounds the detail workers
func NewFetcher(client domain.ListingsClient, detailConcurrency int) *Fetcher {
	if detailConcurrency <= 0 {
		detailConcurrency = 1
	}
	return &Fetcher{client: client, detailConcurrency: detailConcurrency}
}

// FetchAll walks the result pages for the given parameters.
//
// Termination conditions are checked in priority order after each page:
// an empty page, the MaxPages cap, the MaxRecords cap, and finally the
// server-reported total being reached. A page whose fetch exhausts the
// client's retry budget aborts the run with that error; partial pages are
// never silently returned.
func (f *Fetcher) FetchAll(ctx context.Context, params domain.QueryParams, opts FetchOptions) ([]domain.RawListing, error) {
	var collected []domain.RawListing

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.client.SearchPage(ctx, params, page)
		if err != nil {
			return nil, err
		}

		collected = append(collected, result.List...)
		log.Printf("[FETCH] page %d: %d items (%d/%d collected)",
			page, len(result.List), len(collected), result.TotalCount)

		if len(result.List) == 0 {
			break
		}
		if opts.MaxPages > 0 && page >= opts.MaxPages {
			log.Printf("[FETCH] stopping at page cap %d", opts.MaxPages)
			break
		}
		if opts.MaxRecords > 0 && len(collected) >= opts.MaxRecords {
			log.Printf("[FETCH] stopping at record cap %d", opts.MaxRecords)
			break
		}
		if result.TotalCount > 0 && len(collected) >= result.TotalCount {
			break
		}
	}

	if opts.MaxRecords > 0 && len(collected) > opts.MaxRecords {
		collected = collected[:opts.MaxRecords]
	}

	if !opts.FetchDetails {
		return collected, nil
	}
	return f.fetchDetails(ctx, collected)
}

// fetchDetails upgrades each summary to its full listing object. A summary
// whose detail fetch fails (after the client's own retries) is dropped, not
// fatal; order of the surviving listings is preserved.
func (f *Fetcher) fetchDetails(ctx context.Context, summaries []domain.RawListing) ([]domain.RawListing, error) {
	results := make([]domain.RawListing, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.detailConcurrency)

	for i, summary := range summaries {
		id, ok := summary.ListingID()
		if !ok {
			log.Printf("[FETCH] summary %d/%d has no listing id, skipping", i+1, len(summaries))
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			detail, err := f.client.ListingDetail(gctx, id)
			if err != nil {
				log.Printf("[FETCH] detail %d/%d (listing %d) failed, skipping: %v",
					i+1, len(summaries), id, err)
				return nil
			}
			results[i] = detail
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details := make([]domain.RawListing, 0, len(summaries))
	for _, d := range results {
		if d != nil {
			details = append(details, d)
		}
	}
	log.Printf("[FETCH] detail phase kept %d/%d listings", len(details), len(summaries))
	return details, nil
}
