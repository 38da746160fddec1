package position

import (
	"fmt"
	"strings"
)

// Measure names a position-level quantity the engine can aggregate.
type Measure int

const (
	MeasurePayoff Measure = iota + 1
	MeasureDelta
	MeasureGamma
	MeasureVega
	MeasureTheta
	MeasureRho
)

// Measures lists every measure in report order.
var Measures = []Measure{MeasurePayoff, MeasureDelta, MeasureGamma, MeasureVega, MeasureTheta, MeasureRho}

// ParseMeasure converts a configuration string into a Measure.
func ParseMeasure(value string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "payoff", "pnl":
		return MeasurePayoff, nil
	case "delta":
		return MeasureDelta, nil
	case "gamma":
		return MeasureGamma, nil
	case "vega":
		return MeasureVega, nil
	case "theta":
		return MeasureTheta, nil
	case "rho":
		return MeasureRho, nil
	default:
		return 0, fmt.Errorf("unknown measure %q", value)
	}
}

func (m Measure) String() string {
	switch m {
	case MeasurePayoff:
		return "payoff"
	case MeasureDelta:
		return "delta"
	case MeasureGamma:
		return "gamma"
	case MeasureVega:
		return "vega"
	case MeasureTheta:
		return "theta"
	case MeasureRho:
		return "rho"
	default:
		return fmt.Sprintf("Measure(%d)", int(m))
	}
}
