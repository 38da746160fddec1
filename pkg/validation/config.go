// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"math"

	"github.com/iwvelando/options-risk/pkg/constants"
)

// ConfigValidator collects the parts of a configuration that can produce
// warnings. Hard errors are reported by the config package itself.
type ConfigValidator struct {
	Market    MarketConfig
	Ceiling   float64
	Positions []PositionConfig
	Quotes    []QuoteConfig
}

type MarketConfig struct {
	UnderlyingPrice float64
	RiskFreeRate    float64
	DividendYield   float64
}

type PositionConfig struct {
	Name   string
	Active bool
	Legs   []LegConfig
}

type LegConfig struct {
	Type       string
	Strike     float64
	Expiry     float64
	Volatility float64
	Premium    float64
	Quantity   float64
	Multiplier float64
}

type QuoteConfig struct {
	Name     string
	Type     string
	Strike   float64
	Expiry   float64
	Rate     float64
	Dividend float64
	Price    float64
}

// ValidateLeg returns warnings for a leg that is well formed but unlikely to
// be what the user meant.
func ValidateLeg(label string, leg LegConfig, ceiling float64) []string {
	var warnings []string

	if leg.Quantity == 0 {
		warnings = append(warnings, fmt.Sprintf("%s has zero quantity and contributes nothing", label))
	}
	if leg.Premium < 0 {
		warnings = append(warnings, fmt.Sprintf("%s has a negative premium (%.4f)", label, leg.Premium))
	}
	if leg.Expiry > constants.MaxReasonableExpiryYears {
		warnings = append(warnings, fmt.Sprintf("%s expires in %.1f years, more than %.0f",
			label, leg.Expiry, constants.MaxReasonableExpiryYears))
	}
	if ceiling > 0 && leg.Volatility > ceiling {
		warnings = append(warnings, fmt.Sprintf("%s volatility %.4f is above the implied volatility ceiling %.4f",
			label, leg.Volatility, ceiling))
	}

	return warnings
}

// ValidateQuote warns when a quoted price lies outside the no-arbitrage bounds
// of its option, where no volatility can reproduce it.
func ValidateQuote(quote QuoteConfig, spot float64) string {
	if quote.Expiry <= 0 || quote.Strike <= 0 || spot <= 0 {
		return ""
	}
	forwardSpot := spot * math.Exp(-quote.Dividend*quote.Expiry)
	discountedStrike := quote.Strike * math.Exp(-quote.Rate*quote.Expiry)

	var lower, upper float64
	switch quote.Type {
	case "call", "c":
		lower, upper = math.Max(forwardSpot-discountedStrike, 0), forwardSpot
	case "put", "p":
		lower, upper = math.Max(discountedStrike-forwardSpot, 0), discountedStrike
	default:
		return ""
	}

	if quote.Price <= lower || quote.Price >= upper {
		return fmt.Sprintf("Quote '%s' price %.4f is outside the arbitrage bounds (%.4f, %.4f) and has no implied volatility",
			quote.Name, quote.Price, lower, upper)
	}
	return ""
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	seen := make(map[string]bool)
	for _, position := range cv.Positions {
		if seen[position.Name] {
			warnings = append(warnings, fmt.Sprintf("Position name '%s' is used more than once", position.Name))
		}
		seen[position.Name] = true

		if !position.Active {
			continue
		}
		if len(position.Legs) == 0 {
			warnings = append(warnings, fmt.Sprintf("Position '%s' has no option legs", position.Name))
		}
		for i, leg := range position.Legs {
			label := fmt.Sprintf("Position '%s' leg %d (%s %.2f)", position.Name, i, leg.Type, leg.Strike)
			warnings = append(warnings, ValidateLeg(label, leg, cv.Ceiling)...)
		}
	}

	for _, quote := range cv.Quotes {
		if warning := ValidateQuote(quote, cv.Market.UnderlyingPrice); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	return warnings
}
