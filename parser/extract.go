package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-stores/models"
)

// Extractor maps listing and detail pages to product records.
type Extractor struct {
	resolver *Resolver
}

// NewExtractor builds an extractor on top of resolver. A nil resolver gets a
// default one.
func NewExtractor(resolver *Resolver) *Extractor {
	if resolver == nil {
		resolver = NewResolver(defaultSelectorCacheSize)
	}
	return &Extractor{resolver: resolver}
}

// Resolver exposes the selector resolver used by the extractor.
func (e *Extractor) Resolver() *Resolver {
	return e.resolver
}

// ExtractAll returns one product per container element, in document order.
// Containers missing a name or a price are skipped. An invalid container
// selector is the only error.
func (e *Extractor) ExtractAll(markup string, profile models.StoreProfile, pageURL string) ([]models.Product, error) {
	container, err := e.resolver.compile(profile.ContainerSelector)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	products := make([]models.Product, 0)
	doc.FindMatcher(container).Each(func(_ int, scope *goquery.Selection) {
		if product, ok := e.extractProduct(scope, profile, pageURL); ok {
			products = append(products, product)
		}
	})
	return products, nil
}

// ExtractOne applies the per-container mapping to the whole document, for
// product detail pages.
func (e *Extractor) ExtractOne(markup string, profile models.StoreProfile, pageURL string) (models.Product, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.Product{}, false
	}
	return e.extractProduct(doc.Selection, profile, pageURL)
}

func (e *Extractor) extractProduct(scope *goquery.Selection, profile models.StoreProfile, pageURL string) (models.Product, bool) {
	name, ok := e.resolver.ExtractText(scope, profile.NameSelector)
	if !ok {
		return models.Product{}, false
	}
	price, ok := e.resolver.ExtractText(scope, profile.PriceSelector)
	if !ok {
		return models.Product{}, false
	}

	productURL := pageURL
	if href, ok := e.resolver.ExtractAttribute(scope, profile.LinkSelector, "href"); ok {
		productURL = ResolveURL(pageURL, href)
	}

	imageURL := ""
	if src, ok := e.resolver.ExtractAttribute(scope, profile.ImageSelector, "src"); ok {
		imageURL = ResolveURL(pageURL, src)
	}

	description := ""
	if profile.HasDescription() {
		description, _ = e.resolver.ExtractText(scope, profile.DescriptionSelector)
	}

	return models.Product{
		Name:        name,
		Price:       price,
		URL:         productURL,
		ImageURL:    imageURL,
		StoreName:   profile.Name,
		Description: description,
	}, true
}
