// Package bsm implements closed-form Black-Scholes-Merton values, sensitivities
// and payoffs for European calls and puts on a dividend-paying underlying.
package bsm

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/options-risk/pkg/mathutil"
)

var (
	// ErrDomain is returned when an input falls outside the model's domain,
	// e.g. a non-positive volatility or time to expiry.
	ErrDomain = errors.New("input outside model domain")

	// ErrUnknownOptionType is returned when an option type is neither call nor put.
	ErrUnknownOptionType = errors.New("unknown option type")
)

// OptionType selects the call or put branch of every formula.
type OptionType int

const (
	// Call is a European call option.
	Call OptionType = iota + 1
	// Put is a European put option.
	Put
)

// ParseOptionType converts a configuration string into an OptionType.
func ParseOptionType(value string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOptionType, value)
	}
}

// String returns the lowercase name of the option type.
func (t OptionType) String() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("OptionType(%d)", int(t))
	}
}

// Validate returns ErrUnknownOptionType for anything other than Call or Put.
func (t OptionType) Validate() error {
	switch t {
	case Call, Put:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownOptionType, int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t OptionType) MarshalText() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *OptionType) UnmarshalText(text []byte) error {
	parsed, err := ParseOptionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Inputs holds the model parameters for a single option.
type Inputs struct {
	Spot     float64 // s: underlying price
	Strike   float64 // k
	Rate     float64 // r: continuously compounded risk-free rate
	Dividend float64 // q: continuous dividend yield
	Expiry   float64 // t: years to expiry
	Vol      float64 // annualized volatility
}

// Validate checks the inputs against the model domain. Spot, strike, expiry and
// volatility must be positive; rate and dividend may take any finite value.
func (in Inputs) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"spot", in.Spot},
		{"strike", in.Strike},
		{"expiry", in.Expiry},
		{"volatility", in.Vol},
	}
	for _, p := range positive {
		if !mathutil.IsFinite(p.value) || p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrDomain, p.name, p.value)
		}
	}
	if !mathutil.IsFinite(in.Rate) {
		return fmt.Errorf("%w: rate must be finite, got %v", ErrDomain, in.Rate)
	}
	if !mathutil.IsFinite(in.Dividend) {
		return fmt.Errorf("%w: dividend must be finite, got %v", ErrDomain, in.Dividend)
	}
	return nil
}

// terms caches the intermediate quantities shared by values and Greeks.
type terms struct {
	d1, d2      float64
	sqrtT       float64
	divDiscount float64 // e^(-q·t)
	discount    float64 // e^(-r·t)
}

func newTerms(in Inputs) (terms, error) {
	if err := in.Validate(); err != nil {
		return terms{}, err
	}
	sqrtT := math.Sqrt(in.Expiry)
	volSqrtT := in.Vol * sqrtT
	if !(volSqrtT > 0) {
		return terms{}, fmt.Errorf("%w: volatility·√expiry underflows to zero (volatility %v, expiry %v)", ErrDomain, in.Vol, in.Expiry)
	}
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate-in.Dividend+0.5*in.Vol*in.Vol)*in.Expiry) / volSqrtT
	if !mathutil.IsFinite(d1) {
		return terms{}, fmt.Errorf("%w: d1 is not finite (volatility %v, expiry %v)", ErrDomain, in.Vol, in.Expiry)
	}
	return terms{
		d1:          d1,
		d2:          d1 - volSqrtT,
		sqrtT:       sqrtT,
		divDiscount: math.Exp(-in.Dividend * in.Expiry),
		discount:    math.Exp(-in.Rate * in.Expiry),
	}, nil
}

// D1 returns the standardized log-moneyness term d1.
func D1(in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return tm.d1, nil
}

// D2 returns d1 - vol·√t.
func D2(in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return tm.d2, nil
}
