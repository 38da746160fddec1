package solver

import (
	"errors"
	"fmt"

	"github.com/iwvelando/options-risk/pkg/bsm"
	"github.com/iwvelando/options-risk/pkg/constants"
	"github.com/iwvelando/options-risk/pkg/mathutil"
	"github.com/iwvelando/options-risk/pkg/position"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ErrMissingGuess is returned when a solve that has no default seed is
// called without one.
var ErrMissingGuess = errors.New("initial guess is required")

// ImpliedVolSettings controls an implied volatility search.
type ImpliedVolSettings struct {
	Settings
	InitialGuess float64
	Ceiling      float64
}

// DefaultImpliedVolSettings returns the standard implied volatility settings:
// seed 0.5, ceiling 5.0, price tolerance 1e-5, relative vol step 1e-5 and
// 5000 iterations.
func DefaultImpliedVolSettings() ImpliedVolSettings {
	return ImpliedVolSettings{
		Settings: Settings{
			Tolerance:     constants.ImpliedVolTolerance,
			StepTolerance: constants.ImpliedVolStepTolerance,
			MaxIterations: constants.ImpliedVolMaxIterations,
		},
		InitialGuess: constants.ImpliedVolInitialGuess,
		Ceiling:      constants.ImpliedVolCeiling,
	}
}

// DefaultBreakevenSettings returns tolerance 1e-2 and 500 iterations.
func DefaultBreakevenSettings() Settings {
	return Settings{
		Tolerance:     constants.BreakevenTolerance,
		MaxIterations: constants.BreakevenMaxIterations,
	}
}

// DefaultDeltaNeutralSettings returns tolerance 1e-5 and 5000 iterations.
func DefaultDeltaNeutralSettings() Settings {
	return Settings{
		Tolerance:     constants.DeltaNeutralTolerance,
		MaxIterations: constants.DeltaNeutralMaxIterations,
	}
}

// ImpliedVolResult is the outcome of an implied volatility search. Clamped
// reports that the root exceeded the ceiling and Vol was capped to it;
// Converged is reported independently.
type ImpliedVolResult struct {
	Vol        float64 `json:"vol"`
	Converged  bool    `json:"converged"`
	Clamped    bool    `json:"clamped"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
}

// BreakevenResult holds one root per seed with its distance from the
// current underlying price.
type BreakevenResult struct {
	Roots         []float64 `json:"roots"`
	DollarChange  []float64 `json:"dollarChange"`
	PercentChange []float64 `json:"percentChange"`
	Converged     bool      `json:"converged"`
	Iterations    int       `json:"iterations"`
	Residual      float64   `json:"residual"`
}

// Solver runs root-finds against a position engine.
type Solver struct {
	logger *zap.Logger
	engine *position.Engine
}

// NewSolver creates a Solver. A nil engine is replaced by one with default
// share scaling.
func NewSolver(logger *zap.Logger, engine *position.Engine) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = position.NewEngine(logger, constants.DefaultUnderlyingShares)
	}
	return &Solver{logger: logger, engine: engine}
}

// ImpliedVol finds the volatility at which the model value of the option
// described by in equals price. in.Vol is ignored. The search uses vega as
// an analytic Jacobian.
func (s *Solver) ImpliedVol(t bsm.OptionType, in bsm.Inputs, price float64, settings ImpliedVolSettings) (ImpliedVolResult, error) {
	if err := t.Validate(); err != nil {
		return ImpliedVolResult{}, err
	}
	if !mathutil.IsFinite(price) {
		return ImpliedVolResult{}, fmt.Errorf("%w: market price must be finite, got %v", bsm.ErrDomain, price)
	}
	if !(settings.Ceiling > 0) {
		return ImpliedVolResult{}, fmt.Errorf("implied vol ceiling must be positive, got %v", settings.Ceiling)
	}

	at := func(vol float64) bsm.Inputs {
		trial := in
		trial.Vol = vol
		return trial
	}
	residual := func(dst, x []float64) error {
		v, err := bsm.Value(t, at(x[0]))
		if err != nil {
			return err
		}
		dst[0] = v - price
		return nil
	}
	newton := settings.Settings
	newton.Jacobian = func(jac *mat.Dense, x []float64) error {
		vega, err := bsm.Vega(t, at(x[0]), 1)
		if err != nil {
			return err
		}
		jac.Set(0, 0, vega)
		return nil
	}

	res, err := Newton(residual, []float64{settings.InitialGuess}, newton)
	if err != nil {
		return ImpliedVolResult{}, fmt.Errorf("implied vol: %w", err)
	}

	root := res.Root[0]
	out := ImpliedVolResult{
		Vol:        mathutil.Min(root, settings.Ceiling),
		Converged:  res.Converged,
		Clamped:    root > settings.Ceiling,
		Iterations: res.Iterations,
		Residual:   res.Residual,
	}
	if !out.Converged {
		s.logger.Debug("implied vol did not converge",
			zap.String("op", "solver.ImpliedVol"),
			zap.String("type", t.String()),
			zap.Float64("price", price),
			zap.Float64("root", root),
			zap.Int("iterations", res.Iterations),
			zap.Float64("residual", res.Residual),
		)
	}
	return out, nil
}

// CallImpliedVol is ImpliedVol for a call with default settings.
func (s *Solver) CallImpliedVol(in bsm.Inputs, price float64) (ImpliedVolResult, error) {
	return s.ImpliedVol(bsm.Call, in, price, DefaultImpliedVolSettings())
}

// PutImpliedVol is ImpliedVol for a put with default settings.
func (s *Solver) PutImpliedVol(in bsm.Inputs, price float64) (ImpliedVolResult, error) {
	return s.ImpliedVol(bsm.Put, in, price, DefaultImpliedVolSettings())
}

// BreakevenSeeds returns the starting underlying prices for a breakeven
// search: the current price for a single option leg, or the current price
// offset by minus and plus the summed premiums for several legs. The pair is
// a heuristic meant to land on both sides of the payoff's zeros; it does not
// guarantee either. A lower seed at or below zero is replaced by half the
// current price.
func BreakevenSeeds(m position.MarketState, p position.Position) []float64 {
	s := m.UnderlyingPrice
	if len(p.Legs) <= 1 {
		return []float64{s}
	}
	premium := p.TotalPremium()
	lower, upper := s-premium, s+premium
	if lower > upper {
		lower, upper = upper, lower
	}
	if lower <= 0 {
		lower = s / 2
	}
	return []float64{lower, upper}
}

// Breakeven finds the underlying prices at which the position's aggregate
// payoff is zero, seeded by BreakevenSeeds.
func (s *Solver) Breakeven(m position.MarketState, p position.Position, settings Settings) (BreakevenResult, error) {
	if err := p.Validate(m); err != nil {
		return BreakevenResult{}, fmt.Errorf("breakeven: %w", err)
	}

	payoff := func(dst, x []float64) error {
		for i, spot := range x {
			scenario := m
			scenario.UnderlyingPrice = spot
			r, err := s.engine.Payoff(scenario, p)
			if err != nil {
				return err
			}
			dst[i] = r.Aggregate
		}
		return nil
	}

	settings.Jacobian = nil
	res, err := Newton(payoff, BreakevenSeeds(m, p), settings)
	if err != nil {
		return BreakevenResult{}, fmt.Errorf("breakeven: %w", err)
	}

	out := BreakevenResult{
		Roots:         res.Root,
		DollarChange:  make([]float64, len(res.Root)),
		PercentChange: make([]float64, len(res.Root)),
		Converged:     res.Converged,
		Iterations:    res.Iterations,
		Residual:      res.Residual,
	}
	for i, root := range res.Root {
		out.DollarChange[i] = root - m.UnderlyingPrice
		out.PercentChange[i] = mathutil.PercentChange(m.UnderlyingPrice, root)
	}

	s.logger.Debug("breakeven solved",
		zap.String("op", "solver.Breakeven"),
		zap.Float64s("roots", out.Roots),
		zap.Bool("converged", out.Converged),
		zap.Int("iterations", out.Iterations),
	)
	return out, nil
}

// DeltaNeutral finds the underlying quantity at which the position's
// aggregate delta is zero. x0 seeds the search and has no default; each
// element is solved as an independent candidate hedge.
func (s *Solver) DeltaNeutral(m position.MarketState, p position.Position, x0 []float64, settings Settings) (Result, error) {
	if len(x0) == 0 {
		return Result{}, fmt.Errorf("delta neutral: %w", ErrMissingGuess)
	}
	if err := p.Validate(m); err != nil {
		return Result{}, fmt.Errorf("delta neutral: %w", err)
	}

	delta := func(dst, x []float64) error {
		for i, quantity := range x {
			r, err := s.engine.Delta(m, p.WithUnderlyingQuantity(quantity))
			if err != nil {
				return err
			}
			dst[i] = r.Aggregate
		}
		return nil
	}
	settings.Jacobian = func(jac *mat.Dense, x []float64) error {
		jac.Zero()
		for i := range x {
			jac.Set(i, i, bsm.UnderlyingDelta())
		}
		return nil
	}

	res, err := Newton(delta, x0, settings)
	if err != nil {
		return Result{}, fmt.Errorf("delta neutral: %w", err)
	}

	s.logger.Debug("delta neutral solved",
		zap.String("op", "solver.DeltaNeutral"),
		zap.Float64s("quantities", res.Root),
		zap.Bool("converged", res.Converged),
		zap.Int("iterations", res.Iterations),
	)
	return res, nil
}
