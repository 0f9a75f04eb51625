package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-stores/models"
)

const defaultSelectorCacheSize = 256

type compiledSelector struct {
	matcher cascadia.Selector
	err     error
}

// Resolver applies CSS selectors to document scopes. Compiled selectors,
// including the ones that failed to compile, are kept in a bounded LRU.
type Resolver struct {
	cache *lru.Cache[string, compiledSelector]
}

// NewResolver builds a resolver caching up to cacheSize selectors.
func NewResolver(cacheSize int) *Resolver {
	if cacheSize <= 0 {
		cacheSize = defaultSelectorCacheSize
	}
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New[string, compiledSelector](cacheSize)
	return &Resolver{cache: cache}
}

func (r *Resolver) compile(selector string) (cascadia.Selector, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, SelectorError{Selector: selector, Err: errEmptySelector}
	}
	if cached, ok := r.cache.Get(selector); ok {
		return cached.matcher, cached.err
	}

	matcher, err := cascadia.Compile(selector)
	if err != nil {
		err = SelectorError{Selector: selector, Err: err}
		matcher = nil
	}
	r.cache.Add(selector, compiledSelector{matcher: matcher, err: err})
	return matcher, err
}

// ValidateSelector returns a SelectorError when selector is blank or does not compile.
func (r *Resolver) ValidateSelector(selector string) error {
	_, err := r.compile(selector)
	return err
}

// ValidateProfile checks the required fields of profile and compiles every
// configured selector. It is meant to run before a profile is stored.
func (r *Resolver) ValidateProfile(profile models.StoreProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	for _, kind := range models.FieldKinds {
		selector := profile.Selector(kind)
		if strings.TrimSpace(selector) == "" {
			continue
		}
		if err := r.ValidateSelector(selector); err != nil {
			return fmt.Errorf("%s selector: %w", kind, err)
		}
	}
	return nil
}

// first returns the first descendant of scope matching selector. Blank and
// invalid selectors match nothing.
func (r *Resolver) first(scope *goquery.Selection, selector string) *goquery.Selection {
	if scope == nil || selector == "" {
		return nil
	}
	matcher, err := r.compile(selector)
	if err != nil {
		return nil
	}
	match := scope.FindMatcher(matcher).First()
	if match.Length() == 0 {
		return nil
	}
	return match
}

// ExtractText returns the trimmed text of the first element matching selector.
// Text that is empty after trimming counts as not found.
func (r *Resolver) ExtractText(scope *goquery.Selection, selector string) (string, bool) {
	match := r.first(scope, selector)
	if match == nil {
		return "", false
	}
	text := strings.TrimSpace(match.Text())
	if text == "" {
		return "", false
	}
	return text, true
}

// ExtractAttribute returns attr of the first element matching selector.
func (r *Resolver) ExtractAttribute(scope *goquery.Selection, selector, attr string) (string, bool) {
	match := r.first(scope, selector)
	if match == nil {
		return "", false
	}
	return match.Attr(attr)
}

// ExtractTexts returns the non-empty trimmed text of every element matching selector.
func (r *Resolver) ExtractTexts(scope *goquery.Selection, selector string) []string {
	if scope == nil || selector == "" {
		return nil
	}
	matcher, err := r.compile(selector)
	if err != nil {
		return nil
	}
	var texts []string
	scope.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

// SuggestSelectors returns common CSS patterns for kind.
func SuggestSelectors(kind models.FieldKind) []string {
	switch kind {
	case models.FieldTitle:
		return []string{".product-title", ".product-name", "h1", "h2", ".title", "[data-testid='product-title']"}
	case models.FieldPrice:
		return []string{".price", ".product-price", ".current-price", ".sale-price", "[data-testid='price']", ".price-current"}
	case models.FieldImage:
		return []string{".product-image img", ".main-image img", "img.product-photo", "[data-testid='product-image'] img"}
	case models.FieldLink:
		return []string{"a", ".product-link", "a.product-title", "[data-testid='product-link']"}
	case models.FieldDescription:
		return []string{".product-description", ".description", ".product-summary", "[data-testid='description']"}
	case models.FieldContainer:
		return []string{".product-item", ".product-card", ".product", "[data-testid='product']", ".search-result"}
	default:
		return nil
	}
}

// SuggestSelectorsFor is SuggestSelectors keyed by field name. Unknown names yield nil.
func SuggestSelectorsFor(name string) []string {
	kind, err := models.ParseFieldKind(name)
	if err != nil {
		return nil
	}
	return SuggestSelectors(kind)
}
