package position

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Grid returns steps evenly spaced underlying prices from min to max inclusive.
func Grid(min, max float64, steps int) ([]float64, error) {
	if steps < 2 {
		return nil, fmt.Errorf("grid requires at least 2 steps, got %d", steps)
	}
	if min <= 0 || max <= min {
		return nil, fmt.Errorf("grid bounds must satisfy 0 < min < max, got %v and %v", min, max)
	}
	return floats.Span(make([]float64, steps), min, max), nil
}

// Point is one scenario of a sweep.
type Point struct {
	UnderlyingPrice float64 `json:"underlyingPrice"`
	Result          Result  `json:"result"`
}

// Sweep evaluates measure at every underlying price in spots. Scenarios run
// concurrently; the returned points follow the order of spots.
func (e *Engine) Sweep(ctx context.Context, measure Measure, m MarketState, p Position, spots []float64) ([]Point, error) {
	points := make([]Point, len(spots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, spot := range spots {
		i, spot := i, spot
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scenario := m
			scenario.UnderlyingPrice = spot
			r, err := e.Evaluate(measure, scenario, p)
			if err != nil {
				return fmt.Errorf("scenario %d (underlying %.4g): %w", i, spot, err)
			}
			points[i] = Point{UnderlyingPrice: spot, Result: r}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("sweep completed",
		zap.String("op", "position.Sweep"),
		zap.String("measure", measure.String()),
		zap.Int("scenarios", len(spots)),
	)
	return points, nil
}
