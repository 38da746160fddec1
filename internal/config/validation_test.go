package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/iwvelando/options-risk/pkg/bsm"
)

func validConfiguration() Configuration {
	c := Configuration{
		Market: Market{UnderlyingPrice: 100, RiskFreeRate: 0.01},
		Positions: []Position{
			{
				Name:   "Long call",
				Active: true,
				Legs:   []Leg{{Type: "call", Strike: 100, Expiry: 1, Volatility: 0.2, Premium: 8.4, Quantity: 1}},
			},
		},
		Quotes: []Quote{{Name: "ATM", Type: "call", Strike: 100, Expiry: 1, Price: 8.4}},
		Sweep:  &Sweep{Min: 80, Max: 120},
	}
	c.Normalize()
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Configuration)
		contains string
		target   error
	}{
		{
			name:   "Valid configuration",
			mutate: func(c *Configuration) {},
		},
		{
			name:     "Invalid log level",
			mutate:   func(c *Configuration) { c.Logging.Level = "verbose" },
			contains: "invalid log level",
		},
		{
			name:     "Invalid output format",
			mutate:   func(c *Configuration) { c.Output.Format = "xml" },
			contains: "expected output format",
		},
		{
			name:     "Negative shares",
			mutate:   func(c *Configuration) { c.Greeks.Shares = -1 },
			contains: "greeks.shares",
		},
		{
			name:     "Zero underlying price",
			mutate:   func(c *Configuration) { c.Market.UnderlyingPrice = 0 },
			contains: "market.underlyingPrice",
		},
		{
			name:     "Negative solver tolerance",
			mutate:   func(c *Configuration) { c.Solver.Breakeven.Tolerance = -1 },
			contains: "solver.breakeven",
		},
		{
			name:     "Unnamed position",
			mutate:   func(c *Configuration) { c.Positions[0].Name = " " },
			contains: "position 0 has no name",
		},
		{
			name:     "Unknown leg type",
			mutate:   func(c *Configuration) { c.Positions[0].Legs[0].Type = "swap" },
			contains: "position 'Long call': leg 0",
			target:   bsm.ErrUnknownOptionType,
		},
		{
			name:     "Zero expiry leg",
			mutate:   func(c *Configuration) { c.Positions[0].Legs[0].Expiry = 0 },
			contains: "position 'Long call': leg 0",
			target:   bsm.ErrDomain,
		},
		{
			name:     "Negative strike quote",
			mutate:   func(c *Configuration) { c.Quotes[0].Strike = -5 },
			contains: "quote 'ATM'",
			target:   bsm.ErrDomain,
		},
		{
			name:     "Zero price quote",
			mutate:   func(c *Configuration) { c.Quotes[0].Price = 0 },
			contains: "price must be positive",
		},
		{
			name:     "Inverted sweep",
			mutate:   func(c *Configuration) { c.Sweep.Min, c.Sweep.Max = 120, 80 },
			contains: "sweep",
		},
		{
			name:     "Unknown sweep measure",
			mutate:   func(c *Configuration) { c.Sweep.Measure = "vanna" },
			contains: "unknown measure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfiguration()
			tt.mutate(&c)
			err := c.Validate()
			if tt.contains == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.contains)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Validate() error = %v, expected to contain %q", err, tt.contains)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Validate() error = %v, expected to wrap %v", err, tt.target)
			}
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	c := validConfiguration()
	c.Positions[0].Legs[0].Quantity = 0
	c.Quotes[0].Price = 150

	warnings := c.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "zero quantity") {
		t.Errorf("unexpected first warning %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "arbitrage bounds") {
		t.Errorf("unexpected second warning %q", warnings[1])
	}

	// Warnings never block a computation.
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
