package scraper

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-stores/config"
)

// Fetcher retrieves the markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// CollyFetcher fetches pages with a colly collector. Each fetch runs on a
// clone of the base collector so concurrent fetches do not share callbacks.
type CollyFetcher struct {
	collector *colly.Collector
	limiter   *rate.Limiter
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher configured from cfg. A positive
// RequestDelay spaces consecutive fetches by at least that long.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) *CollyFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	var limiter *rate.Limiter
	if cfg.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	}

	return &CollyFetcher{
		collector: collector,
		limiter:   limiter,
		metrics:   metrics,
	}
}

// WithTransport replaces the HTTP transport used by every fetch.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch issues a GET for rawURL and returns the body as text. Non-2xx
// statuses, transport failures and undecodable bodies are returned as
// HTTPStatusError, NetworkError and BodyReadError respectively.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NetworkError{URL: rawURL, Err: err}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", NetworkError{URL: rawURL, Err: err}
		}
	}

	c := f.collector.Clone()
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true

	var (
		received bool
		status   int
		body     []byte
	)
	c.OnResponse(func(r *colly.Response) {
		received = true
		status = r.StatusCode
		body = r.Body
	})

	start := time.Now()
	err := c.Visit(rawURL)
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		classified := classifyFetchError(rawURL, err)
		f.metrics.IncRequest(errorTypeLabel(classified))
		slog.Debug("fetch failed",
			slog.String("url", rawURL),
			slog.Any("error", err),
		)
		return "", classified
	}
	if !received {
		f.metrics.IncRequest("network")
		return "", NetworkError{URL: rawURL, Err: errNoResponse}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		f.metrics.IncRequest("http_status")
		return "", HTTPStatusError{URL: rawURL, StatusCode: status}
	}
	if !utf8.Valid(body) {
		f.metrics.IncRequest("body_read")
		return "", BodyReadError{URL: rawURL, Err: errBodyNotText}
	}

	f.metrics.IncRequest("ok")
	return string(body), nil
}
