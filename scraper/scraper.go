package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-stores/config"
	"github.com/aluiziolira/go-scrape-stores/models"
	"github.com/aluiziolira/go-scrape-stores/parser"
)

// Scraper fetches store pages and maps them to product records.
type Scraper struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor *parser.Extractor
	Metrics   *Metrics
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithFetcher replaces the default colly fetcher.
func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) {
		s.fetcher = f
	}
}

// WithMetrics shares an existing metrics bundle.
func WithMetrics(m *Metrics) Option {
	return func(s *Scraper) {
		s.Metrics = m
	}
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Scraper{
		cfg:       cfg,
		extractor: parser.NewExtractor(parser.NewResolver(cfg.SelectorCacheSize)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}
	if s.fetcher == nil {
		s.fetcher = NewCollyFetcher(cfg, s.Metrics)
	}
	return s, nil
}

// Config returns the configuration the scraper was built with.
func (s *Scraper) Config() *config.Config {
	return s.cfg
}

// Resolver returns the selector resolver shared by all extractions.
func (s *Scraper) Resolver() *parser.Resolver {
	return s.extractor.Resolver()
}

// ValidateProfile checks required fields and that every configured selector
// compiles. It is the strict check applied when a profile is stored.
func (s *Scraper) ValidateProfile(profile models.StoreProfile) error {
	if err := s.extractor.Resolver().ValidateProfile(profile); err != nil {
		return ProfileError{Store: profile.Name, Err: err}
	}
	return nil
}

// checkScrapable is the scrape-time check: required fields must be present
// and the container selector must compile. Field selectors that do not
// compile only leave their field empty.
func (s *Scraper) checkScrapable(profile models.StoreProfile) error {
	if err := profile.Validate(); err != nil {
		return ProfileError{Store: profile.Name, Err: err}
	}
	if err := s.extractor.Resolver().ValidateSelector(profile.ContainerSelector); err != nil {
		return ProfileError{Store: profile.Name, Err: err}
	}
	return nil
}

// FetchPage returns the markup of rawURL.
func (s *Scraper) FetchPage(ctx context.Context, rawURL string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.fetcher.Fetch(ctx, rawURL)
}

// ScrapeStore fetches a listing page and extracts every product on it, in
// document order. A positive MaxProductsPerStore caps the result.
func (s *Scraper) ScrapeStore(ctx context.Context, rawURL string, profile models.StoreProfile) ([]models.Product, error) {
	if err := s.checkScrapable(profile); err != nil {
		return nil, err
	}

	markup, err := s.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	products, err := s.extractor.ExtractAll(markup, profile, rawURL)
	if err != nil {
		return nil, err
	}
	if limit := s.cfg.MaxProductsPerStore; limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	s.Metrics.AddProducts(len(products))
	slog.Debug("scraped listing page",
		slog.String("store", profile.Name),
		slog.String("url", rawURL),
		slog.Int("products", len(products)),
	)
	return products, nil
}

// ScrapeProduct fetches a product detail page and extracts a single record.
// The boolean is false when the page lacks a name or a price.
func (s *Scraper) ScrapeProduct(ctx context.Context, rawURL string, profile models.StoreProfile) (models.Product, bool, error) {
	if err := profile.Validate(); err != nil {
		return models.Product{}, false, ProfileError{Store: profile.Name, Err: err}
	}

	markup, err := s.FetchPage(ctx, rawURL)
	if err != nil {
		return models.Product{}, false, err
	}

	product, ok := s.extractor.ExtractOne(markup, profile, rawURL)
	if ok {
		s.Metrics.AddProducts(1)
	}
	return product, ok, nil
}

// SearchStore builds the store's search URL for query and scrapes it.
func (s *Scraper) SearchStore(ctx context.Context, query string, profile models.StoreProfile) ([]models.Product, error) {
	return s.ScrapeStore(ctx, profile.BuildSearchURL(query), profile)
}
