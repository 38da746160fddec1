// Package solver inverts the pricing and position engines with a damped
// multivariate Newton iteration.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const defaultMaxHalvings = 30

// Func writes the residual of x into dst. An error marks x as outside the
// function's domain.
type Func func(dst, x []float64) error

// JacobianFunc writes ∂f/∂x at x into jac.
type JacobianFunc func(jac *mat.Dense, x []float64) error

// Settings controls a Newton solve.
type Settings struct {
	// Tolerance is the largest residual, in the ∞-norm, accepted as a root.
	Tolerance float64
	// StepTolerance, when positive, also requires the last accepted step to
	// satisfy |dx_i| <= StepTolerance·(|x_i| + StepTolerance) for every i.
	StepTolerance float64
	// MaxIterations bounds the number of Newton steps.
	MaxIterations int
	// MaxHalvings bounds step halving when a trial point is rejected.
	// Zero selects the default.
	MaxHalvings int
	// Jacobian supplies an analytic Jacobian. When nil, central finite
	// differences are used.
	Jacobian JacobianFunc
}

// Validate checks that the settings describe a usable solve.
func (s Settings) Validate() error {
	if !(s.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive, got %v", s.Tolerance)
	}
	if !(s.StepTolerance >= 0) || math.IsInf(s.StepTolerance, 1) {
		return fmt.Errorf("step tolerance must be finite and non-negative, got %v", s.StepTolerance)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", s.MaxIterations)
	}
	if s.MaxHalvings < 0 {
		return fmt.Errorf("max halvings cannot be negative, got %d", s.MaxHalvings)
	}
	return nil
}

// Result is the outcome of a Newton solve. Converged is false when the
// iteration budget ran out or the iteration stalled; Root then holds the best
// point reached.
type Result struct {
	Root        []float64 `json:"root"`
	Converged   bool      `json:"converged"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	Residual    float64   `json:"residual"`
}

// Newton finds x with ‖f(x)‖∞ < Tolerance starting from x0. With a
// StepTolerance the iteration also continues until the step is small.
//
// Each step solves J·dx = f(x). A trial point x - λ·dx is rejected when f
// fails there, and λ is halved; among admissible trials the first that
// reduces the residual is taken, otherwise the first admissible one.
// A singular Jacobian ends the solve without convergence.
func Newton(f Func, x0 []float64, s Settings) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	n := len(x0)
	if n == 0 {
		return Result{}, errors.New("initial guess cannot be empty")
	}
	maxHalvings := s.MaxHalvings
	if maxHalvings == 0 {
		maxHalvings = defaultMaxHalvings
	}

	x := append([]float64(nil), x0...)
	fx := make([]float64, n)
	res := Result{}
	if err := f(fx, x); err != nil {
		return Result{}, fmt.Errorf("evaluating initial guess: %w", err)
	}
	res.Evaluations++
	norm := floats.Norm(fx, math.Inf(1))

	jac := mat.NewDense(n, n, nil)
	trial := make([]float64, n)
	ftrial := make([]float64, n)
	best := make([]float64, n)
	fbest := make([]float64, n)

	stepSmall := s.StepTolerance == 0
	for res.Iterations < s.MaxIterations && !converged(norm, stepSmall, s) {
		if err := jacobian(jac, f, x, fx, s.Jacobian, &res); err != nil {
			return finish(res, x, norm, stepSmall, s), err
		}

		var dx mat.VecDense
		if err := dx.SolveVec(jac, mat.NewVecDense(n, append([]float64(nil), fx...))); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				break
			}
		}
		step := dx.RawVector().Data
		if !allFinite(step) {
			break
		}
		if floats.Norm(step, math.Inf(1)) == 0 {
			stepSmall = true
			break
		}

		admissible := false
		bestNorm := math.Inf(1)
		var lastErr error
		lambda := 1.0
		for h := 0; h <= maxHalvings; h++ {
			floats.SubTo(trial, x, scaled(step, lambda))
			err := f(ftrial, trial)
			res.Evaluations++
			lambda /= 2
			if err != nil {
				lastErr = err
				continue
			}
			tnorm := floats.Norm(ftrial, math.Inf(1))
			if !admissible {
				admissible = true
				bestNorm = tnorm
				copy(best, trial)
				copy(fbest, ftrial)
			}
			if tnorm < norm {
				bestNorm = tnorm
				copy(best, trial)
				copy(fbest, ftrial)
				break
			}
		}
		if !admissible {
			res.Iterations++
			return finish(res, x, norm, stepSmall, s), fmt.Errorf("no admissible step from %v: %w", x, lastErr)
		}
		if s.StepTolerance > 0 {
			stepSmall = withinStep(x, best, s.StepTolerance)
		}
		copy(x, best)
		copy(fx, fbest)
		norm = bestNorm
		res.Iterations++
	}

	return finish(res, x, norm, stepSmall, s), nil
}

func converged(norm float64, stepSmall bool, s Settings) bool {
	return norm < s.Tolerance && stepSmall
}

// withinStep reports whether every coordinate moved from x to next by no
// more than tol·(|next_i| + tol).
func withinStep(x, next []float64, tol float64) bool {
	for i := range x {
		if math.Abs(next[i]-x[i]) > tol*(math.Abs(next[i])+tol) {
			return false
		}
	}
	return true
}

func finish(res Result, x []float64, norm float64, stepSmall bool, s Settings) Result {
	res.Root = append([]float64(nil), x...)
	res.Residual = norm
	res.Converged = converged(norm, stepSmall, s)
	return res
}

// jacobian fills jac analytically when an analytic function is supplied,
// otherwise by central differences, falling back to forward differences when
// a central probe leaves the domain.
func jacobian(jac *mat.Dense, f Func, x, fx []float64, analytic JacobianFunc, res *Result) error {
	if analytic != nil {
		if err := analytic(jac, x); err != nil {
			return fmt.Errorf("analytic jacobian: %w", err)
		}
		return nil
	}

	n := len(x)
	var probeErr error
	probe := func(y, xs []float64) {
		res.Evaluations++
		if err := f(y, xs); err != nil && probeErr == nil {
			probeErr = err
		}
	}

	fd.Jacobian(jac, probe, x, &fd.JacobianSettings{Formula: fd.Central})
	if probeErr == nil {
		return nil
	}

	probeErr = nil
	fd.Jacobian(jac, probe, x, &fd.JacobianSettings{
		Formula:     fd.Forward,
		OriginValue: fx[:n],
	})
	if probeErr != nil {
		return fmt.Errorf("numeric jacobian: %w", probeErr)
	}
	return nil
}

func scaled(v []float64, c float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, c, v)
	return out
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
