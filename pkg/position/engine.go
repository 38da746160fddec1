package position

import (
	"fmt"
	"math"

	"github.com/iwvelando/options-risk/pkg/bsm"
	"github.com/iwvelando/options-risk/pkg/constants"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Result is a position-level value with its per-leg breakdown. Components
// holds one entry per option leg, in leg order, followed by the underlying
// leg's contribution.
type Result struct {
	Aggregate  float64   `json:"aggregate"`
	Components []float64 `json:"components"`
}

// Underlying returns the underlying leg's contribution.
func (r Result) Underlying() float64 {
	if len(r.Components) == 0 {
		return 0
	}
	return r.Components[len(r.Components)-1]
}

// Summary holds every measure for one position at one market state.
type Summary struct {
	Payoff Result `json:"payoff"`
	Delta  Result `json:"delta"`
	Gamma  Result `json:"gamma"`
	Vega   Result `json:"vega"`
	Theta  Result `json:"theta"`
	Rho    Result `json:"rho"`
}

// Get returns the result for a single measure.
func (s Summary) Get(m Measure) (Result, error) {
	switch m {
	case MeasurePayoff:
		return s.Payoff, nil
	case MeasureDelta:
		return s.Delta, nil
	case MeasureGamma:
		return s.Gamma, nil
	case MeasureVega:
		return s.Vega, nil
	case MeasureTheta:
		return s.Theta, nil
	case MeasureRho:
		return s.Rho, nil
	default:
		return Result{}, fmt.Errorf("unknown measure %v", m)
	}
}

// Engine evaluates position measures. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	logger *zap.Logger
	shares float64
}

// NewEngine creates an Engine scaling vega and rho by shares. A non-positive
// share count selects the default of 100.
func NewEngine(logger *zap.Logger, shares float64) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !(shares > 0) || math.IsInf(shares, 1) {
		shares = constants.DefaultUnderlyingShares
	}
	return &Engine{logger: logger, shares: shares}
}

// Shares returns the per-contract share count used for vega and rho.
func (e *Engine) Shares() float64 {
	return e.shares
}

type legFunc func(leg OptionLeg, in bsm.Inputs) (float64, error)

// aggregate evaluates fn for every leg in order, appends the underlying's
// contribution and sums the components.
func (e *Engine) aggregate(m MarketState, p Position, fn legFunc, underlying float64) (Result, error) {
	components := make([]float64, 0, len(p.Legs)+1)
	for i, leg := range p.Legs {
		v, err := fn(leg, leg.Inputs(m, m.UnderlyingPrice))
		if err != nil {
			return Result{}, fmt.Errorf("leg %d (%s %.4g): %w", i, leg.Type, leg.Strike, err)
		}
		components = append(components, v)
	}
	components = append(components, underlying)
	return Result{Aggregate: floats.Sum(components), Components: components}, nil
}

// Payoff returns the dollar profit or loss of the position at the market's
// underlying price.
func (e *Engine) Payoff(m MarketState, p Position) (Result, error) {
	under, err := bsm.UnderlyingPayoff(m.UnderlyingPrice, p.Underlying.ReferencePrice, p.Underlying.Quantity)
	if err != nil {
		return Result{}, fmt.Errorf("underlying leg: %w", err)
	}
	return e.aggregate(m, p, func(leg OptionLeg, in bsm.Inputs) (float64, error) {
		return bsm.OptionPayoff(leg.Type, in, leg.Premium, leg.Quantity, leg.Multiplier)
	}, under)
}

// Delta returns the quantity-weighted delta of the position, including the
// underlying's unit delta times its quantity.
func (e *Engine) Delta(m MarketState, p Position) (Result, error) {
	return e.aggregate(m, p, func(leg OptionLeg, in bsm.Inputs) (float64, error) {
		d, err := bsm.Delta(leg.Type, in)
		return d * leg.Quantity, err
	}, bsm.UnderlyingDelta()*p.Underlying.Quantity)
}

// Gamma returns the quantity-weighted gamma of the position.
func (e *Engine) Gamma(m MarketState, p Position) (Result, error) {
	return e.aggregate(m, p, func(leg OptionLeg, in bsm.Inputs) (float64, error) {
		g, err := bsm.Gamma(leg.Type, in)
		return g * leg.Quantity, err
	}, 0)
}

// Vega returns the quantity-weighted vega of the position.
func (e *Engine) Vega(m MarketState, p Position) (Result, error) {
	return e.aggregate(m, p, func(leg OptionLeg, in bsm.Inputs) (float64, error) {
		v, err := bsm.Vega(leg.Type, in, e.shares)
		return v * leg.Quantity, err
	}, 0)
}

// Theta returns the quantity-weighted daily theta of the position.
func (e *Engine) Theta(m MarketState, p Position) (Result, error) {
	return e.aggregate(m, p, func(leg OptionLeg, in bsm.Inputs) (float64, error) {
		th, err := bsm.Theta(leg.Type, in)
		return th * leg.Quantity, err
	}, 0)
}

// Rho returns the quantity-weighted rho of the position.
func (e *Engine) Rho(m MarketState, p Position) (Result, error) {
	return e.aggregate(m, p, func(leg OptionLeg, in bsm.Inputs) (float64, error) {
		r, err := bsm.Rho(leg.Type, in, e.shares)
		return r * leg.Quantity, err
	}, 0)
}

// Evaluate computes a single measure.
func (e *Engine) Evaluate(measure Measure, m MarketState, p Position) (Result, error) {
	switch measure {
	case MeasurePayoff:
		return e.Payoff(m, p)
	case MeasureDelta:
		return e.Delta(m, p)
	case MeasureGamma:
		return e.Gamma(m, p)
	case MeasureVega:
		return e.Vega(m, p)
	case MeasureTheta:
		return e.Theta(m, p)
	case MeasureRho:
		return e.Rho(m, p)
	default:
		return Result{}, fmt.Errorf("unknown measure %v", measure)
	}
}

// Summarize computes every measure for the position.
func (e *Engine) Summarize(m MarketState, p Position) (Summary, error) {
	var s Summary
	targets := map[Measure]*Result{
		MeasurePayoff: &s.Payoff,
		MeasureDelta:  &s.Delta,
		MeasureGamma:  &s.Gamma,
		MeasureVega:   &s.Vega,
		MeasureTheta:  &s.Theta,
		MeasureRho:    &s.Rho,
	}
	for _, measure := range Measures {
		r, err := e.Evaluate(measure, m, p)
		if err != nil {
			return Summary{}, fmt.Errorf("%s: %w", measure, err)
		}
		*targets[measure] = r
	}

	e.logger.Debug("position summarized",
		zap.String("op", "position.Summarize"),
		zap.Int("legs", len(p.Legs)),
		zap.Float64("payoff", s.Payoff.Aggregate),
		zap.Float64("delta", s.Delta.Aggregate),
	)
	return s, nil
}
