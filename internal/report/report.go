// Package report defines the data structures of a risk report and computes
// one report for every active position of a configuration.
package report

import (
	"context"
	"fmt"

	"github.com/iwvelando/options-risk/internal/config"
	"github.com/iwvelando/options-risk/pkg/position"
	"github.com/iwvelando/options-risk/pkg/solver"
	"go.uber.org/zap"
)

// Report holds the results for all active positions and quotes.
type Report struct {
	Market    position.MarketState `json:"market"`
	Positions []PositionReport     `json:"positions"`
	Quotes    []QuoteReport        `json:"quotes,omitempty"`
}

// PositionReport holds every measure and solve for one position.
type PositionReport struct {
	Name      string                 `json:"name"`
	Legs      int                    `json:"legs"`
	Summary   position.Summary       `json:"summary"`
	Breakeven solver.BreakevenResult `json:"breakeven"`
	Hedge     *Hedge                 `json:"hedge,omitempty"`
	Sweep     *Sweep                 `json:"sweep,omitempty"`
}

// Hedge is the underlying quantity that makes the position delta neutral.
type Hedge struct {
	Quantity   float64 `json:"quantity"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
}

// Sweep is one measure evaluated across a grid of underlying prices.
type Sweep struct {
	Measure string           `json:"measure"`
	Points  []position.Point `json:"points"`
}

// QuoteReport is the implied volatility of one quoted option.
type QuoteReport struct {
	Name       string                  `json:"name"`
	Type       string                  `json:"type"`
	Strike     float64                 `json:"strike"`
	Expiry     float64                 `json:"expiry"`
	Price      float64                 `json:"price"`
	ImpliedVol solver.ImpliedVolResult `json:"impliedVol"`
}

// GetReport computes the report for every active position and every quote.
func GetReport(ctx context.Context, logger *zap.Logger, conf config.Configuration) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := position.NewEngine(logger, conf.Greeks.Shares)
	s := solver.NewSolver(logger, engine)
	m := conf.MarketState()

	result := Report{Market: m}
	for _, p := range conf.Positions {
		if !p.Active {
			logger.Debug(fmt.Sprintf("skipping position %s because it is inactive", p.Name),
				zap.String("op", "report.GetReport"),
			)
			continue
		}

		pr, err := positionReport(ctx, logger, engine, s, conf, p)
		if err != nil {
			return result, fmt.Errorf("position '%s': %w", p.Name, err)
		}
		result.Positions = append(result.Positions, pr)
	}

	for _, q := range conf.Quotes {
		t, in, err := q.ToInputs(m)
		if err != nil {
			return result, fmt.Errorf("quote '%s': %w", q.Name, err)
		}
		iv, err := s.ImpliedVol(t, in, q.Price, conf.Solver.ImpliedVolSettings())
		if err != nil {
			return result, fmt.Errorf("quote '%s': %w", q.Name, err)
		}
		if !iv.Converged {
			logger.Warn(fmt.Sprintf("implied volatility for quote %s did not converge", q.Name),
				zap.String("op", "report.GetReport"),
				zap.Int("iterations", iv.Iterations),
				zap.Float64("residual", iv.Residual),
			)
		}
		result.Quotes = append(result.Quotes, QuoteReport{
			Name:       q.Name,
			Type:       t.String(),
			Strike:     q.Strike,
			Expiry:     q.Expiry,
			Price:      q.Price,
			ImpliedVol: iv,
		})
	}

	return result, nil
}

func positionReport(ctx context.Context, logger *zap.Logger, engine *position.Engine, s *solver.Solver, conf config.Configuration, p config.Position) (PositionReport, error) {
	m := conf.MarketState()
	pos, err := p.ToPosition()
	if err != nil {
		return PositionReport{}, err
	}

	summary, err := engine.Summarize(m, pos)
	if err != nil {
		return PositionReport{}, err
	}

	breakeven, err := s.Breakeven(m, pos, conf.Solver.BreakevenSettings())
	if err != nil {
		return PositionReport{}, err
	}
	if !breakeven.Converged {
		logger.Warn(fmt.Sprintf("breakeven for position %s did not converge", p.Name),
			zap.String("op", "report.GetReport"),
			zap.Float64s("roots", breakeven.Roots),
			zap.Float64("residual", breakeven.Residual),
		)
	}

	pr := PositionReport{
		Name:      p.Name,
		Legs:      len(pos.Legs),
		Summary:   summary,
		Breakeven: breakeven,
	}

	if p.HedgeGuess != nil {
		res, err := s.DeltaNeutral(m, pos, []float64{*p.HedgeGuess}, conf.Solver.DeltaNeutralSettings())
		if err != nil {
			return PositionReport{}, err
		}
		pr.Hedge = &Hedge{
			Quantity:   res.Root[0],
			Converged:  res.Converged,
			Iterations: res.Iterations,
			Residual:   res.Residual,
		}
	}

	if conf.Sweep != nil {
		grid, err := conf.Sweep.Grid()
		if err != nil {
			return PositionReport{}, err
		}
		measure, err := conf.Sweep.ParsedMeasure()
		if err != nil {
			return PositionReport{}, err
		}
		points, err := engine.Sweep(ctx, measure, m, pos, grid)
		if err != nil {
			return PositionReport{}, err
		}
		pr.Sweep = &Sweep{Measure: measure.String(), Points: points}
	}

	return pr, nil
}
