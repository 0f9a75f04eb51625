package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-stores/parser"
)

// NetworkError indicates the page could not be retrieved at all
// (connection, DNS, timeout, or a request that could not be issued).
type NetworkError struct {
	URL string
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Errorf("network: %s: %w", e.URL, e.Err).Error()
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or client timeout.
func (e NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// HTTPStatusError indicates the remote answered outside the 2xx range.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("http_status: %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// BodyReadError indicates the response body could not be read as text.
type BodyReadError struct {
	URL string
	Err error
}

func (e BodyReadError) Error() string {
	return fmt.Errorf("body_read: %s: %w", e.URL, e.Err).Error()
}

func (e BodyReadError) Unwrap() error {
	return e.Err
}

// ProfileError indicates a store profile was rejected before any request.
type ProfileError struct {
	Store string
	Err   error
}

func (e ProfileError) Error() string {
	return fmt.Errorf("invalid_profile: %q: %w", e.Store, e.Err).Error()
}

func (e ProfileError) Unwrap() error {
	return e.Err
}

var errNoResponse = errors.New("no response received")

var errBodyNotText = errors.New("body is not valid UTF-8 text")

// requestErrors are raised by colly before a request leaves the process.
var requestErrors = []error{
	colly.ErrForbiddenDomain,
	colly.ErrMissingURL,
	colly.ErrMaxDepth,
	colly.ErrForbiddenURL,
	colly.ErrNoURLFiltersMatch,
	colly.ErrAlreadyVisited,
	colly.ErrRobotsTxtBlocked,
}

// ErrorTypeLabel returns the metric and diagnostic label for err.
func ErrorTypeLabel(err error) string {
	return errorTypeLabel(err)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var selector parser.SelectorError
	if errors.As(err, &selector) {
		return "selector"
	}
	var profileErr ProfileError
	if errors.As(err, &profileErr) {
		return "invalid_profile"
	}
	var network NetworkError
	if errors.As(err, &network) {
		return "network"
	}
	var status HTTPStatusError
	if errors.As(err, &status) {
		return "http_status"
	}
	var body BodyReadError
	if errors.As(err, &body) {
		return "body_read"
	}
	return "other"
}

// classifyFetchError maps an error returned by the collector. Anything that
// is not a transport failure happened while reading or decoding the body.
func classifyFetchError(rawURL string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NetworkError{URL: rawURL, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NetworkError{URL: rawURL, Err: err}
	}
	for _, requestErr := range requestErrors {
		if errors.Is(err, requestErr) {
			return NetworkError{URL: rawURL, Err: err}
		}
	}
	return BodyReadError{URL: rawURL, Err: err}
}
