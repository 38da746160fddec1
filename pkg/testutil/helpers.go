// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/options-risk/internal/report"
	"github.com/iwvelando/options-risk/pkg/mathutil"
)

// FindPosition finds a position report by name.
// Returns a pointer into the report if found, nil otherwise.
func FindPosition(r report.Report, name string) *report.PositionReport {
	for i := range r.Positions {
		if r.Positions[i].Name == name {
			return &r.Positions[i]
		}
	}
	return nil
}

// FindQuote finds a quote report by name.
func FindQuote(r report.Report, name string) *report.QuoteReport {
	for i := range r.Quotes {
		if r.Quotes[i].Name == name {
			return &r.Quotes[i]
		}
	}
	return nil
}

// ApproxEqual reports whether a and b differ by no more than tol.
func ApproxEqual(a, b, tol float64) bool {
	return mathutil.WithinTolerance(a, b, tol)
}
