package parser

import (
	"errors"
	"fmt"
)

var errEmptySelector = errors.New("empty selector")

// SelectorError indicates a configured CSS selector could not be compiled.
type SelectorError struct {
	Selector string
	Err      error
}

func (e SelectorError) Error() string {
	return fmt.Errorf("selector %q: %w", e.Selector, e.Err).Error()
}

func (e SelectorError) Unwrap() error {
	return e.Err
}
