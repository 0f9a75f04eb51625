package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-scrape-stores/models"
)

type storeResult struct {
	products []models.Product
	err      error
}

// SearchAll runs query against every enabled profile and merges the results.
// Stores are searched with up to Parallelism in flight; products are merged
// in profile order regardless of completion order. A failing store never
// aborts the others, it is counted and described in the outcome instead.
func (s *Scraper) SearchAll(ctx context.Context, query string, profiles []models.StoreProfile) models.SearchOutcome {
	if ctx == nil {
		ctx = context.Background()
	}

	outcome := models.SearchOutcome{
		ID:        uuid.NewString(),
		Query:     query,
		Products:  []models.Product{},
		Failures:  []models.StoreFailure{},
		StartTime: time.Now(),
	}

	enabled := make([]models.StoreProfile, 0, len(profiles))
	for _, profile := range profiles {
		if profile.Enabled {
			enabled = append(enabled, profile)
		}
	}
	if len(enabled) == 0 {
		outcome.EndTime = time.Now()
		slog.Info("no enabled stores to search", slog.String("query", query))
		return outcome
	}

	results := make([]storeResult, len(enabled))

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	for i, profile := range enabled {
		g.Go(func() error {
			products, err := s.SearchStore(ctx, query, profile)
			results[i] = storeResult{products: products, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, result := range results {
		store := enabled[i].Name
		if result.err != nil {
			category := errorTypeLabel(result.err)
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, models.StoreFailure{
				Store:    store,
				Category: category,
				Message:  result.err.Error(),
			})
			s.Metrics.IncStoreSearch("failure")
			s.Metrics.IncError(category)
			slog.Warn("store search failed",
				slog.String("store", store),
				slog.String("category", category),
				slog.Any("error", result.err),
			)
			continue
		}

		outcome.Succeeded++
		outcome.Products = append(outcome.Products, result.products...)
		s.Metrics.IncStoreSearch("success")
	}

	outcome.EndTime = time.Now()
	slog.Info("search complete",
		slog.String("id", outcome.ID),
		slog.String("query", query),
		slog.String("status", outcome.Status()),
		slog.Duration("elapsed", outcome.EndTime.Sub(outcome.StartTime)),
	)
	return outcome
}
