package config

import (
	"fmt"

	"github.com/iwvelando/options-risk/pkg/bsm"
	"github.com/iwvelando/options-risk/pkg/position"
	"github.com/iwvelando/options-risk/pkg/solver"
)

// MarketState converts the market section into the engine's market state.
func (c *Configuration) MarketState() position.MarketState {
	return position.MarketState{
		UnderlyingPrice: c.Market.UnderlyingPrice,
		RiskFreeRate:    c.Market.RiskFreeRate,
		DividendYield:   c.Market.DividendYield,
	}
}

// ToPosition converts a configured position into the engine's representation.
// Only option type names are checked here; model domain checks happen in the
// engine.
func (p Position) ToPosition() (position.Position, error) {
	legs := make([]position.OptionLeg, len(p.Legs))
	for i, leg := range p.Legs {
		t, err := bsm.ParseOptionType(leg.Type)
		if err != nil {
			return position.Position{}, fmt.Errorf("leg %d: %w", i, err)
		}
		legs[i] = position.OptionLeg{
			Type:       t,
			Strike:     leg.Strike,
			Rate:       leg.Rate,
			Dividend:   leg.Dividend,
			Expiry:     leg.Expiry,
			Volatility: leg.Volatility,
			Premium:    leg.Premium,
			Quantity:   leg.Quantity,
			Multiplier: leg.Multiplier,
		}
	}

	return position.Position{
		Legs: legs,
		Underlying: position.UnderlyingLeg{
			ReferencePrice: p.Underlying.ReferencePrice,
			Quantity:       p.Underlying.Quantity,
		},
	}, nil
}

// ToInputs resolves the quote's option type and model inputs at the current
// market. Vol is left zero for the solver to fill.
func (q Quote) ToInputs(m position.MarketState) (bsm.OptionType, bsm.Inputs, error) {
	leg := position.OptionLeg{
		Strike:   q.Strike,
		Rate:     q.Rate,
		Dividend: q.Dividend,
		Expiry:   q.Expiry,
	}
	in := leg.Inputs(m, m.UnderlyingPrice)

	t, err := bsm.ParseOptionType(q.Type)
	if err != nil {
		return 0, in, err
	}
	return t, in, nil
}

// ImpliedVolSettings converts the implied volatility section into solver settings.
func (s SolverConfig) ImpliedVolSettings() solver.ImpliedVolSettings {
	return solver.ImpliedVolSettings{
		Settings: solver.Settings{
			Tolerance:     s.ImpliedVol.Tolerance,
			StepTolerance: s.ImpliedVol.StepTolerance,
			MaxIterations: s.ImpliedVol.MaxIterations,
		},
		InitialGuess: s.ImpliedVol.InitialGuess,
		Ceiling:      s.ImpliedVol.Ceiling,
	}
}

// BreakevenSettings converts the breakeven section into solver settings.
func (s SolverConfig) BreakevenSettings() solver.Settings {
	return s.Breakeven.settings()
}

// DeltaNeutralSettings converts the delta-neutral section into solver settings.
func (s SolverConfig) DeltaNeutralSettings() solver.Settings {
	return s.DeltaNeutral.settings()
}

func (s SolveConfig) settings() solver.Settings {
	return solver.Settings{
		Tolerance:     s.Tolerance,
		MaxIterations: s.MaxIterations,
	}
}

// Grid returns the underlying prices the sweep visits.
func (s Sweep) Grid() ([]float64, error) {
	return position.Grid(s.Min, s.Max, s.Steps)
}

// ParsedMeasure returns the measure the sweep evaluates.
func (s Sweep) ParsedMeasure() (position.Measure, error) {
	return position.ParseMeasure(s.Measure)
}
