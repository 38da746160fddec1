package bsm

import (
	"fmt"

	"github.com/iwvelando/options-risk/pkg/mathutil"
)

// OptionPayoff returns the dollar profit or loss of holding quantity contracts
// bought at premium, marked at the model value. Losses are negative.
func OptionPayoff(t OptionType, in Inputs, premium, quantity, multiplier float64) (float64, error) {
	for _, v := range []float64{premium, quantity, multiplier} {
		if !mathutil.IsFinite(v) {
			return 0, fmt.Errorf("%w: option payoff inputs must be finite", ErrDomain)
		}
	}
	value, err := Value(t, in)
	if err != nil {
		return 0, err
	}
	return (value - premium) * quantity * multiplier, nil
}

// UnderlyingPayoff returns the dollar profit or loss of quantity units of the
// underlying bought at referencePrice and marked at spot.
func UnderlyingPayoff(spot, referencePrice, quantity float64) (float64, error) {
	for _, v := range []float64{spot, referencePrice, quantity} {
		if !mathutil.IsFinite(v) {
			return 0, fmt.Errorf("%w: underlying payoff inputs must be finite", ErrDomain)
		}
	}
	return (spot - referencePrice) * quantity, nil
}
