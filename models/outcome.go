package models

import (
	"fmt"
	"time"
)

// StoreFailure records why one store contributed no products to a search.
type StoreFailure struct {
	Store    string `json:"store"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SearchOutcome holds the overall result of a multi-store search.
type SearchOutcome struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Products  []Product      `json:"products"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []StoreFailure `json:"failures,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
}

// Status summarises the outcome in one line.
func (o SearchOutcome) Status() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d products", o.Succeeded, o.Failed, len(o.Products))
}

// FailureFor returns the diagnostic recorded for store, if any.
func (o SearchOutcome) FailureFor(store string) (StoreFailure, bool) {
	for _, f := range o.Failures {
		if f.Store == store {
			return f, true
		}
	}
	return StoreFailure{}, false
}
