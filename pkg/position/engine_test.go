package position

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/iwvelando/options-risk/pkg/bsm"
	"github.com/iwvelando/options-risk/pkg/constants"
	"go.uber.org/zap"
)

func floatPtr(v float64) *float64 {
	return &v
}

var market = MarketState{UnderlyingPrice: 100, RiskFreeRate: 0.01, DividendYield: 0}

func singleCall() Position {
	return Position{
		Legs: []OptionLeg{
			{Type: bsm.Call, Strike: 100, Expiry: 1, Volatility: 0.2, Premium: 8.0, Quantity: 1, Multiplier: 100},
		},
		Underlying: UnderlyingLeg{ReferencePrice: 100, Quantity: 0},
	}
}

func ironCondor() Position {
	return Position{
		Legs: []OptionLeg{
			{Type: bsm.Put, Strike: 85, Expiry: 0.25, Volatility: 0.28, Premium: 0.6, Quantity: 1, Multiplier: 100},
			{Type: bsm.Put, Strike: 92, Expiry: 0.25, Volatility: 0.24, Premium: 1.5, Quantity: -1, Multiplier: 100},
			{Type: bsm.Call, Strike: 108, Rate: floatPtr(0.015), Expiry: 0.5, Volatility: 0.21, Premium: 2.1, Quantity: -1, Multiplier: 100},
			{Type: bsm.Call, Strike: 115, Dividend: floatPtr(0.01), Expiry: 0.5, Volatility: 0.23, Premium: 0.9, Quantity: 1, Multiplier: 100},
		},
		Underlying: UnderlyingLeg{ReferencePrice: 98, Quantity: 25},
	}
}

func TestNewEngineShares(t *testing.T) {
	tests := []struct {
		shares   float64
		expected float64
	}{
		{100, 100},
		{1, 1},
		{0, constants.DefaultUnderlyingShares},
		{-5, constants.DefaultUnderlyingShares},
		{math.NaN(), constants.DefaultUnderlyingShares},
		{math.Inf(1), constants.DefaultUnderlyingShares},
	}
	for _, tt := range tests {
		if got := NewEngine(nil, tt.shares).Shares(); got != tt.expected {
			t.Errorf("NewEngine(%v).Shares() = %v, expected %v", tt.shares, got, tt.expected)
		}
	}
}

func TestAggregateConsistency(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 0)
	positions := map[string]Position{
		"single call": singleCall(),
		"iron condor": ironCondor(),
		"no options":  {Underlying: UnderlyingLeg{ReferencePrice: 90, Quantity: 10}},
	}

	for name, p := range positions {
		for _, measure := range Measures {
			t.Run(name+"/"+measure.String(), func(t *testing.T) {
				r, err := engine.Evaluate(measure, market, p)
				if err != nil {
					t.Fatalf("Evaluate error: %v", err)
				}
				if len(r.Components) != len(p.Legs)+1 {
					t.Fatalf("expected %d components, got %d", len(p.Legs)+1, len(r.Components))
				}
				var sum float64
				for _, c := range r.Components {
					sum += c
				}
				if math.Abs(sum-r.Aggregate) > constants.AggregateTolerance {
					t.Errorf("aggregate %v != sum of components %v", r.Aggregate, sum)
				}
			})
		}
	}
}

func TestComponentsPreserveLegOrder(t *testing.T) {
	engine := NewEngine(nil, 100)
	p := ironCondor()
	r, err := engine.Delta(market, p)
	if err != nil {
		t.Fatalf("Delta error: %v", err)
	}
	for i, leg := range p.Legs {
		d, err := bsm.Delta(leg.Type, leg.Inputs(market, market.UnderlyingPrice))
		if err != nil {
			t.Fatalf("bsm.Delta error: %v", err)
		}
		if r.Components[i] != d*leg.Quantity {
			t.Errorf("component %d = %v, expected %v", i, r.Components[i], d*leg.Quantity)
		}
	}
	if r.Underlying() != 25 {
		t.Errorf("underlying delta component = %v, expected 25", r.Underlying())
	}
}

func TestSingleLegMatchesKernel(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 100)
	p := singleCall()
	in := p.Legs[0].Inputs(market, market.UnderlyingPrice)

	payoff, err := engine.Payoff(market, p)
	if err != nil {
		t.Fatalf("Payoff error: %v", err)
	}
	value, _ := bsm.CallValue(in)
	if math.Abs(payoff.Aggregate-(value-8.0)*100) > 1e-9 {
		t.Errorf("payoff = %v, expected %v", payoff.Aggregate, (value-8.0)*100)
	}

	vega, err := engine.Vega(market, p)
	if err != nil {
		t.Fatalf("Vega error: %v", err)
	}
	want, _ := bsm.Vega(bsm.Call, in, 100)
	if vega.Aggregate != want {
		t.Errorf("vega = %v, expected %v", vega.Aggregate, want)
	}
	if vega.Underlying() != 0 {
		t.Errorf("underlying vega = %v, expected 0", vega.Underlying())
	}
}

func TestUnderlyingPayoffContribution(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 100)
	p := Position{Underlying: UnderlyingLeg{ReferencePrice: 95, Quantity: -4}}
	r, err := engine.Payoff(market, p)
	if err != nil {
		t.Fatalf("Payoff error: %v", err)
	}
	if r.Aggregate != -20 || len(r.Components) != 1 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestLegOverrides(t *testing.T) {
	leg := OptionLeg{Type: bsm.Put, Strike: 90, Rate: floatPtr(0.05), Expiry: 1, Volatility: 0.3}
	in := leg.Inputs(MarketState{UnderlyingPrice: 100, RiskFreeRate: 0.01, DividendYield: 0.02}, 101)
	if in.Rate != 0.05 || in.Dividend != 0.02 || in.Spot != 101 {
		t.Errorf("unexpected inputs %+v", in)
	}
}

func TestMalformedLegFailsWholeAggregation(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 100)

	bad := ironCondor()
	bad.Legs[2].Type = bsm.OptionType(9)
	for _, measure := range Measures {
		if _, err := engine.Evaluate(measure, market, bad); !errors.Is(err, bsm.ErrUnknownOptionType) {
			t.Errorf("%s: expected ErrUnknownOptionType, got %v", measure, err)
		}
	}

	expired := singleCall()
	expired.Legs[0].Expiry = 0
	if _, err := engine.Payoff(market, expired); !errors.Is(err, bsm.ErrDomain) {
		t.Errorf("expected ErrDomain for expired leg, got %v", err)
	}
	if err := expired.Validate(market); !errors.Is(err, bsm.ErrDomain) {
		t.Errorf("Validate: expected ErrDomain, got %v", err)
	}
	if err := bad.Validate(market); !errors.Is(err, bsm.ErrUnknownOptionType) {
		t.Errorf("Validate: expected ErrUnknownOptionType, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 100)
	p := ironCondor()
	s, err := engine.Summarize(market, p)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	for _, measure := range Measures {
		want, err := engine.Evaluate(measure, market, p)
		if err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}
		got, err := s.Get(measure)
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if got.Aggregate != want.Aggregate {
			t.Errorf("%s: summary %v, expected %v", measure, got.Aggregate, want.Aggregate)
		}
	}
	if _, err := s.Get(Measure(0)); err == nil {
		t.Error("expected error for unknown measure")
	}
}

func TestTotalPremiumAndWithUnderlyingQuantity(t *testing.T) {
	p := ironCondor()
	if math.Abs(p.TotalPremium()-5.1) > 1e-12 {
		t.Errorf("TotalPremium = %v, expected 5.1", p.TotalPremium())
	}
	hedged := p.WithUnderlyingQuantity(-3)
	if hedged.Underlying.Quantity != -3 || p.Underlying.Quantity != 25 {
		t.Errorf("WithUnderlyingQuantity mutated original or failed: %v / %v", hedged.Underlying.Quantity, p.Underlying.Quantity)
	}
}

func TestParseMeasure(t *testing.T) {
	for _, m := range Measures {
		parsed, err := ParseMeasure(m.String())
		if err != nil || parsed != m {
			t.Errorf("ParseMeasure(%q) = %v, %v", m.String(), parsed, err)
		}
	}
	if _, err := ParseMeasure("vanna"); err == nil {
		t.Error("expected error for unsupported measure")
	}
}

func TestGrid(t *testing.T) {
	spots, err := Grid(80, 120, 5)
	if err != nil {
		t.Fatalf("Grid error: %v", err)
	}
	expected := []float64{80, 90, 100, 110, 120}
	for i := range expected {
		if math.Abs(spots[i]-expected[i]) > 1e-12 {
			t.Errorf("spot %d = %v, expected %v", i, spots[i], expected[i])
		}
	}

	invalid := []struct {
		min, max float64
		steps    int
	}{
		{80, 120, 1},
		{0, 120, 10},
		{120, 80, 10},
	}
	for _, tt := range invalid {
		if _, err := Grid(tt.min, tt.max, tt.steps); err == nil {
			t.Errorf("Grid(%v, %v, %d) expected error", tt.min, tt.max, tt.steps)
		}
	}
}

func TestSweepPreservesOrder(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 100)
	p := ironCondor()
	spots, _ := Grid(70, 130, 61)

	points, err := engine.Sweep(context.Background(), MeasurePayoff, market, p, spots)
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if len(points) != len(spots) {
		t.Fatalf("expected %d points, got %d", len(spots), len(points))
	}
	for i, point := range points {
		if point.UnderlyingPrice != spots[i] {
			t.Fatalf("point %d has underlying %v, expected %v", i, point.UnderlyingPrice, spots[i])
		}
		scenario := market
		scenario.UnderlyingPrice = spots[i]
		want, err := engine.Payoff(scenario, p)
		if err != nil {
			t.Fatalf("Payoff error: %v", err)
		}
		if point.Result.Aggregate != want.Aggregate {
			t.Errorf("point %d payoff %v, expected %v", i, point.Result.Aggregate, want.Aggregate)
		}
	}
}

func TestSweepPropagatesErrors(t *testing.T) {
	engine := NewEngine(zap.NewNop(), 100)
	p := singleCall()
	p.Legs[0].Volatility = -1
	if _, err := engine.Sweep(context.Background(), MeasureDelta, market, p, []float64{90, 100}); !errors.Is(err, bsm.ErrDomain) {
		t.Errorf("expected ErrDomain, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Sweep(ctx, MeasureDelta, market, singleCall(), []float64{90, 100}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
