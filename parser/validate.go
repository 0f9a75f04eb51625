// Package parser maps store pages to product records using the selectors of
// a store profile.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-stores/models"
)

// ValidateProduct ensures the extractor captured the required fields.
func ValidateProduct(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product missing name")
	}
	if strings.TrimSpace(p.Price) == "" {
		return fmt.Errorf("product missing price for %s", p.Name)
	}
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("product missing url for %s", p.Name)
	}
	return nil
}
