// Package models defines data structures for the scraper.
package models

import (
	"strconv"
	"strings"
)

// Product represents a product record extracted from a store page.
type Product struct {
	Name        string `csv:"name" json:"name" yaml:"name"`
	Price       string `csv:"price" json:"price" yaml:"price"`
	URL         string `csv:"url" json:"url" yaml:"url"`
	ImageURL    string `csv:"image_url" json:"image_url" yaml:"image_url"`
	StoreName   string `csv:"store_name" json:"store_name" yaml:"store_name"`
	Description string `csv:"description" json:"description,omitempty" yaml:"description,omitempty"`
}

// HasDescription reports whether a description was extracted.
func (p Product) HasDescription() bool {
	return p.Description != ""
}

// NumericPrice keeps the digits and separators of the raw price and parses
// them as a float. Commas are treated as decimal points. Unparsable prices
// yield 0.
func (p Product) NumericPrice() float64 {
	var b strings.Builder
	for _, r := range p.Price {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return value
}
