// Package position aggregates per-leg values and sensitivities of a
// multi-leg options position written against a single underlying.
package position

import (
	"fmt"

	"github.com/iwvelando/options-risk/pkg/bsm"
)

// MarketState holds the market observables shared by every leg.
type MarketState struct {
	UnderlyingPrice float64 `json:"underlyingPrice"`
	RiskFreeRate    float64 `json:"riskFreeRate"`
	DividendYield   float64 `json:"dividendYield"`
}

// OptionLeg is one option line of a position. Rate and Dividend override the
// market values when set.
type OptionLeg struct {
	Type       bsm.OptionType `json:"type"`
	Strike     float64        `json:"strike"`
	Rate       *float64       `json:"rate,omitempty"`
	Dividend   *float64       `json:"dividend,omitempty"`
	Expiry     float64        `json:"expiry"`
	Volatility float64        `json:"volatility"`
	Premium    float64        `json:"premium"`
	Quantity   float64        `json:"quantity"`
	Multiplier float64        `json:"multiplier"`
}

// UnderlyingLeg is the position's holding in the underlying itself.
type UnderlyingLeg struct {
	ReferencePrice float64 `json:"referencePrice"`
	Quantity       float64 `json:"quantity"`
}

// Position is an ordered list of option legs plus exactly one underlying leg.
type Position struct {
	Legs       []OptionLeg   `json:"legs"`
	Underlying UnderlyingLeg `json:"underlying"`
}

// Inputs resolves the model inputs of the leg at the given spot.
func (l OptionLeg) Inputs(m MarketState, spot float64) bsm.Inputs {
	rate := m.RiskFreeRate
	if l.Rate != nil {
		rate = *l.Rate
	}
	dividend := m.DividendYield
	if l.Dividend != nil {
		dividend = *l.Dividend
	}
	return bsm.Inputs{
		Spot:     spot,
		Strike:   l.Strike,
		Rate:     rate,
		Dividend: dividend,
		Expiry:   l.Expiry,
		Vol:      l.Volatility,
	}
}

// TotalPremium sums the per-unit premiums of all option legs.
func (p Position) TotalPremium() float64 {
	var total float64
	for _, leg := range p.Legs {
		total += leg.Premium
	}
	return total
}

// WithUnderlyingQuantity returns a copy of the position holding quantity
// units of the underlying. The leg slice is shared, not copied.
func (p Position) WithUnderlyingQuantity(quantity float64) Position {
	p.Underlying.Quantity = quantity
	return p
}

// Validate checks every leg's option type and the leg-level model domain.
func (p Position) Validate(m MarketState) error {
	for i, leg := range p.Legs {
		if err := leg.Type.Validate(); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
		if err := leg.Inputs(m, m.UnderlyingPrice).Validate(); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return nil
}
