package bsm

import (
	"fmt"
	"math"

	"github.com/iwvelando/options-risk/pkg/constants"
)

// Greeks bundles the first-order sensitivities and gamma of one option.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// UnderlyingDelta is the delta of one unit of the underlying.
func UnderlyingDelta() float64 {
	return 1.0
}

// Delta returns ∂V/∂s for the given option type.
func Delta(t OptionType, in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	switch t {
	case Call:
		return tm.divDiscount * N(tm.d1), nil
	case Put:
		return -tm.divDiscount * N(-tm.d1), nil
	default:
		return 0, t.Validate()
	}
}

// Gamma returns ∂²V/∂s², which is the same for calls and puts.
func Gamma(t OptionType, in Inputs) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return gamma(in, tm), nil
}

// Vega returns the value change per unit of volatility, divided by shares.
// Calls and puts share the same vega.
func Vega(t OptionType, in Inputs, shares float64) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	if err := validateShares(shares); err != nil {
		return 0, err
	}
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return vega(in, tm, shares), nil
}

// Theta returns the time decay per calendar day.
func Theta(t OptionType, in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	switch t {
	case Call:
		return callTheta(in, tm), nil
	case Put:
		return putTheta(in, tm), nil
	default:
		return 0, t.Validate()
	}
}

// Rho returns the value change per unit of rate, divided by shares.
func Rho(t OptionType, in Inputs, shares float64) (float64, error) {
	if err := validateShares(shares); err != nil {
		return 0, err
	}
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	switch t {
	case Call:
		return in.Strike * in.Expiry * tm.discount * N(tm.d2) / shares, nil
	case Put:
		return -in.Strike * in.Expiry * tm.discount * N(-tm.d2) / shares, nil
	default:
		return 0, t.Validate()
	}
}

// ComputeGreeks evaluates all Greeks for one option from a single set of d1/d2 terms.
func ComputeGreeks(t OptionType, in Inputs, shares float64) (Greeks, error) {
	if err := t.Validate(); err != nil {
		return Greeks{}, err
	}
	if err := validateShares(shares); err != nil {
		return Greeks{}, err
	}
	tm, err := newTerms(in)
	if err != nil {
		return Greeks{}, err
	}

	g := Greeks{
		Gamma: gamma(in, tm),
		Vega:  vega(in, tm, shares),
	}
	switch t {
	case Call:
		g.Delta = tm.divDiscount * N(tm.d1)
		g.Theta = callTheta(in, tm)
		g.Rho = in.Strike * in.Expiry * tm.discount * N(tm.d2) / shares
	case Put:
		g.Delta = -tm.divDiscount * N(-tm.d1)
		g.Theta = putTheta(in, tm)
		g.Rho = -in.Strike * in.Expiry * tm.discount * N(-tm.d2) / shares
	}
	return g, nil
}

func gamma(in Inputs, tm terms) float64 {
	return tm.divDiscount * Phi(tm.d1) / (in.Spot * in.Vol * tm.sqrtT)
}

func vega(in Inputs, tm terms, shares float64) float64 {
	return in.Spot * tm.divDiscount * Phi(tm.d1) * tm.sqrtT / shares
}

// decay is the volatility term common to call and put theta.
func decay(in Inputs, tm terms) float64 {
	return -tm.divDiscount * in.Spot * Phi(tm.d1) * in.Vol * 0.5 / tm.sqrtT
}

func callTheta(in Inputs, tm terms) float64 {
	annual := decay(in, tm) -
		in.Rate*in.Strike*tm.discount*N(tm.d2) +
		in.Dividend*in.Spot*tm.divDiscount*N(tm.d1)
	return annual / constants.DaysPerYear
}

func putTheta(in Inputs, tm terms) float64 {
	annual := decay(in, tm) +
		in.Rate*in.Strike*tm.discount*N(-tm.d2) -
		in.Dividend*in.Spot*tm.divDiscount*N(-tm.d1)
	return annual / constants.DaysPerYear
}

func validateShares(shares float64) error {
	if !(shares > 0) || math.IsInf(shares, 1) {
		return fmt.Errorf("%w: underlying shares must be positive and finite, got %v", ErrDomain, shares)
	}
	return nil
}
