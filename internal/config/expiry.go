package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/options-risk/pkg/datetime"
)

// ResolveExpiries converts every expiryDate in the configuration into a year
// fraction measured from the valuation date.
func (c *Configuration) ResolveExpiries() error {
	return c.ResolveExpiriesWithFixedTime(time.Now())
}

// ResolveExpiriesWithFixedTime resolves expiry dates against fixedTime when
// the market has no valuation date.
func (c *Configuration) ResolveExpiriesWithFixedTime(fixedTime time.Time) error {
	valuation := datetime.Day(fixedTime)
	if strings.TrimSpace(c.Market.ValuationDate) != "" {
		parsed, err := datetime.ParseDate(c.Market.ValuationDate)
		if err != nil {
			return fmt.Errorf("market.valuationDate: %w", err)
		}
		valuation = parsed
	}

	for i := range c.Positions {
		for j := range c.Positions[i].Legs {
			leg := &c.Positions[i].Legs[j]
			expiry, err := resolveExpiry(valuation, leg.Expiry, leg.ExpiryDate)
			if err != nil {
				return fmt.Errorf("position '%s' leg %d: %w", c.Positions[i].Name, j, err)
			}
			leg.Expiry = expiry
		}
	}

	for i := range c.Quotes {
		q := &c.Quotes[i]
		expiry, err := resolveExpiry(valuation, q.Expiry, q.ExpiryDate)
		if err != nil {
			return fmt.Errorf("quote '%s': %w", q.Name, err)
		}
		q.Expiry = expiry
	}

	return nil
}

func resolveExpiry(valuation time.Time, years float64, date string) (float64, error) {
	if strings.TrimSpace(date) == "" {
		return years, nil
	}
	if years != 0 {
		return 0, fmt.Errorf("expiry and expiryDate are mutually exclusive")
	}
	return datetime.ExpiryYears(valuation, date)
}
