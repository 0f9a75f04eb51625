package models

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultSearchURLPattern is used when a profile does not set its own pattern.
const DefaultSearchURLPattern = "{base_url}/search?q={query}"

// StoreProfile is the scraping configuration for one target site.
type StoreProfile struct {
	Name                string `json:"name" yaml:"name"`
	BaseURL             string `json:"base_url" yaml:"base_url"`
	SearchURLPattern    string `json:"search_url_pattern" yaml:"search_url_pattern"`
	ContainerSelector   string `json:"product_container_selector" yaml:"product_container_selector"`
	NameSelector        string `json:"name_selector" yaml:"name_selector"`
	PriceSelector       string `json:"price_selector" yaml:"price_selector"`
	ImageSelector       string `json:"image_selector" yaml:"image_selector"`
	LinkSelector        string `json:"link_selector" yaml:"link_selector"`
	DescriptionSelector string `json:"description_selector,omitempty" yaml:"description_selector,omitempty"`
	Enabled             bool   `json:"enabled" yaml:"enabled"`
}

// NewStoreProfile returns an enabled profile with the default search pattern.
func NewStoreProfile(name, baseURL string) StoreProfile {
	return StoreProfile{
		Name:             name,
		BaseURL:          baseURL,
		SearchURLPattern: DefaultSearchURLPattern,
		Enabled:          true,
	}
}

// Validate ensures the fields required for extraction are present.
func (s StoreProfile) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(s.ContainerSelector) == "" {
		missing = append(missing, "container selector")
	}
	if strings.TrimSpace(s.NameSelector) == "" {
		missing = append(missing, "name selector")
	}
	if strings.TrimSpace(s.PriceSelector) == "" {
		missing = append(missing, "price selector")
	}
	if len(missing) > 0 {
		return fmt.Errorf("store profile missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsValid reports whether Validate passes.
func (s StoreProfile) IsValid() bool {
	return s.Validate() == nil
}

// HasDescription reports whether a description selector is configured.
func (s StoreProfile) HasDescription() bool {
	return strings.TrimSpace(s.DescriptionSelector) != ""
}

// BuildSearchURL fills the search pattern with the base URL and the query.
// Both placeholders are replaced in a single pass, so placeholder text inside
// a query is not expanded. The query is path-escaped where it lands before
// the pattern's "?" and query-escaped after it.
func (s StoreProfile) BuildSearchURL(query string) string {
	pattern := s.SearchURLPattern
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultSearchURLPattern
	}

	path, rawQuery, hasQuery := strings.Cut(pattern, "?")
	built := strings.NewReplacer(
		"{base_url}", s.BaseURL,
		"{query}", url.PathEscape(query),
	).Replace(path)
	if !hasQuery {
		return built
	}
	return built + "?" + strings.NewReplacer(
		"{base_url}", s.BaseURL,
		"{query}", url.QueryEscape(query),
	).Replace(rawQuery)
}

// Selector returns the selector configured for kind.
func (s StoreProfile) Selector(kind FieldKind) string {
	switch kind {
	case FieldContainer:
		return s.ContainerSelector
	case FieldTitle:
		return s.NameSelector
	case FieldPrice:
		return s.PriceSelector
	case FieldImage:
		return s.ImageSelector
	case FieldLink:
		return s.LinkSelector
	case FieldDescription:
		return s.DescriptionSelector
	default:
		return ""
	}
}

// SetSelector writes value into the selector field for kind.
func (s *StoreProfile) SetSelector(kind FieldKind, value string) error {
	switch kind {
	case FieldContainer:
		s.ContainerSelector = value
	case FieldTitle:
		s.NameSelector = value
	case FieldPrice:
		s.PriceSelector = value
	case FieldImage:
		s.ImageSelector = value
	case FieldLink:
		s.LinkSelector = value
	case FieldDescription:
		s.DescriptionSelector = value
	default:
		return fmt.Errorf("unknown field kind %d", kind)
	}
	return nil
}
