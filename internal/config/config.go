// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating the config.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/iwvelando/options-risk/pkg/bsm"
	"github.com/iwvelando/options-risk/pkg/constants"
	"github.com/iwvelando/options-risk/pkg/position"
	"github.com/iwvelando/options-risk/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. OPTIONS_RISK_MARKET_UNDERLYINGPRICE.
const EnvPrefix = "OPTIONS_RISK"

// ErrNoPositions is returned by consumers that need at least one active position.
var ErrNoPositions = errors.New("configuration has no active positions")

// Configuration holds all configuration for options-risk.
type Configuration struct {
	Logging   LoggingConfig `yaml:"logging,omitempty"`
	Output    OutputConfig  `yaml:"output,omitempty"`
	Greeks    GreeksConfig  `yaml:"greeks,omitempty"`
	Solver    SolverConfig  `yaml:"solver,omitempty"`
	Market    Market        `yaml:"market"`
	Positions []Position    `yaml:"positions"`
	Quotes    []Quote       `yaml:"quotes,omitempty"`
	Sweep     *Sweep        `yaml:"sweep,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// GreeksConfig scales per-share sensitivities.
type GreeksConfig struct {
	Shares float64 `yaml:"shares,omitempty"`
}

// SolverConfig holds the tolerances and iteration budgets of each root-find.
type SolverConfig struct {
	ImpliedVol   ImpliedVolConfig `yaml:"impliedVol,omitempty"`
	Breakeven    SolveConfig      `yaml:"breakeven,omitempty"`
	DeltaNeutral SolveConfig      `yaml:"deltaNeutral,omitempty"`
}

type ImpliedVolConfig struct {
	InitialGuess  float64 `yaml:"initialGuess,omitempty"`
	Ceiling       float64 `yaml:"ceiling,omitempty"`
	Tolerance     float64 `yaml:"tolerance,omitempty"`
	StepTolerance float64 `yaml:"stepTolerance,omitempty"`
	MaxIterations int     `yaml:"maxIterations,omitempty"`
}

type SolveConfig struct {
	Tolerance     float64 `yaml:"tolerance,omitempty"`
	MaxIterations int     `yaml:"maxIterations,omitempty"`
}

// Market holds the observables shared by every position.
type Market struct {
	UnderlyingPrice float64 `yaml:"underlyingPrice"`
	RiskFreeRate    float64 `yaml:"riskFreeRate"`
	DividendYield   float64 `yaml:"dividendYield"`
	ValuationDate   string  `yaml:"valuationDate,omitempty"` // defaults to today
}

// Position is a named set of option legs on the market's underlying.
type Position struct {
	Name       string     `yaml:"name"`
	Active     bool       `yaml:"active"`
	HedgeGuess *float64   `yaml:"hedgeGuess,omitempty"`
	Underlying Underlying `yaml:"underlying"`
	Legs       []Leg      `yaml:"legs"`
}

type Underlying struct {
	ReferencePrice float64 `yaml:"referencePrice"`
	Quantity       float64 `yaml:"quantity"`
}

// Leg is one option line. Rate and Dividend override the market values.
// Expiry is in years; ExpiryDate may be given instead.
type Leg struct {
	Type       string   `yaml:"type"`
	Strike     float64  `yaml:"strike"`
	Rate       *float64 `yaml:"rate,omitempty"`
	Dividend   *float64 `yaml:"dividend,omitempty"`
	Expiry     float64  `yaml:"expiry"`
	ExpiryDate string   `yaml:"expiryDate,omitempty"`
	Volatility float64  `yaml:"volatility"`
	Premium    float64  `yaml:"premium"`
	Quantity   float64  `yaml:"quantity"`
	Multiplier float64  `yaml:"multiplier,omitempty"`
}

// Quote is an observed option price to invert for implied volatility.
type Quote struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Strike     float64  `yaml:"strike"`
	Expiry     float64  `yaml:"expiry"`
	ExpiryDate string   `yaml:"expiryDate,omitempty"`
	Rate       *float64 `yaml:"rate,omitempty"`
	Dividend   *float64 `yaml:"dividend,omitempty"`
	Price      float64  `yaml:"price"`
}

// Sweep requests a measure evaluated over a grid of underlying prices.
type Sweep struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Steps   int     `yaml:"steps,omitempty"`
	Measure string  `yaml:"measure,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	configuration.Normalize()
	return &configuration, nil
}

// Normalize fills unset values with their defaults and canonicalizes option
// type names.
func (c *Configuration) Normalize() {
	if c.Greeks.Shares == 0 {
		c.Greeks.Shares = constants.DefaultUnderlyingShares
	}

	iv := &c.Solver.ImpliedVol
	if iv.InitialGuess == 0 {
		iv.InitialGuess = constants.ImpliedVolInitialGuess
	}
	if iv.Ceiling == 0 {
		iv.Ceiling = constants.ImpliedVolCeiling
	}
	if iv.Tolerance == 0 {
		iv.Tolerance = constants.ImpliedVolTolerance
	}
	if iv.StepTolerance == 0 {
		iv.StepTolerance = constants.ImpliedVolStepTolerance
	}
	if iv.MaxIterations == 0 {
		iv.MaxIterations = constants.ImpliedVolMaxIterations
	}
	c.Solver.Breakeven.defaults(constants.BreakevenTolerance, constants.BreakevenMaxIterations)
	c.Solver.DeltaNeutral.defaults(constants.DeltaNeutralTolerance, constants.DeltaNeutralMaxIterations)

	for i := range c.Positions {
		for j := range c.Positions[i].Legs {
			leg := &c.Positions[i].Legs[j]
			leg.Type = canonicalType(leg.Type)
			if leg.Multiplier == 0 {
				leg.Multiplier = constants.DefaultContractMultiplier
			}
		}
	}
	for i := range c.Quotes {
		c.Quotes[i].Type = canonicalType(c.Quotes[i].Type)
	}

	if c.Sweep != nil {
		if c.Sweep.Steps == 0 {
			c.Sweep.Steps = constants.DefaultSweepSteps
		}
		if c.Sweep.Measure == "" {
			c.Sweep.Measure = position.MeasurePayoff.String()
		}
	}
}

func (s *SolveConfig) defaults(tolerance float64, maxIterations int) {
	if s.Tolerance == 0 {
		s.Tolerance = tolerance
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = maxIterations
	}
}

// canonicalType maps accepted spellings ("C", " Put ") onto "call" or "put"
// and leaves anything unrecognized untouched for Validate to report.
func canonicalType(value string) string {
	t, err := bsm.ParseOptionType(value)
	if err != nil {
		return value
	}
	return t.String()
}

// Validate reports the first configuration error that would make a
// computation fail.
func (c *Configuration) Validate() error {
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	if !(c.Greeks.Shares > 0) {
		return fmt.Errorf("greeks.shares must be positive, got %v", c.Greeks.Shares)
	}

	m := c.MarketState()
	if !(m.UnderlyingPrice > 0) || math.IsInf(m.UnderlyingPrice, 0) {
		return fmt.Errorf("market.underlyingPrice must be positive and finite, got %v", m.UnderlyingPrice)
	}
	if math.IsNaN(m.RiskFreeRate) || math.IsInf(m.RiskFreeRate, 0) {
		return fmt.Errorf("market.riskFreeRate must be finite, got %v", m.RiskFreeRate)
	}
	if math.IsNaN(m.DividendYield) || math.IsInf(m.DividendYield, 0) {
		return fmt.Errorf("market.dividendYield must be finite, got %v", m.DividendYield)
	}

	if err := c.Solver.ImpliedVolSettings().Validate(); err != nil {
		return fmt.Errorf("solver.impliedVol: %w", err)
	}
	if !(c.Solver.ImpliedVol.Ceiling > 0) {
		return fmt.Errorf("solver.impliedVol.ceiling must be positive, got %v", c.Solver.ImpliedVol.Ceiling)
	}
	if err := c.Solver.BreakevenSettings().Validate(); err != nil {
		return fmt.Errorf("solver.breakeven: %w", err)
	}
	if err := c.Solver.DeltaNeutralSettings().Validate(); err != nil {
		return fmt.Errorf("solver.deltaNeutral: %w", err)
	}

	for i, p := range c.Positions {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("position %d has no name", i)
		}
		pos, err := p.ToPosition()
		if err != nil {
			return fmt.Errorf("position '%s': %w", p.Name, err)
		}
		if err := pos.Validate(m); err != nil {
			return fmt.Errorf("position '%s': %w", p.Name, err)
		}
		if p.HedgeGuess != nil && (math.IsNaN(*p.HedgeGuess) || math.IsInf(*p.HedgeGuess, 0)) {
			return fmt.Errorf("position '%s': hedgeGuess must be finite", p.Name)
		}
	}

	for _, q := range c.Quotes {
		_, in, err := q.ToInputs(m)
		if err != nil {
			return fmt.Errorf("quote '%s': %w", q.Name, err)
		}
		in.Vol = c.Solver.ImpliedVol.InitialGuess
		if err := in.Validate(); err != nil {
			return fmt.Errorf("quote '%s': %w", q.Name, err)
		}
		if !(q.Price > 0) || math.IsInf(q.Price, 0) {
			return fmt.Errorf("quote '%s': price must be positive and finite, got %v", q.Name, q.Price)
		}
	}

	if c.Sweep != nil {
		if _, err := c.Sweep.Grid(); err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		if _, err := c.Sweep.ParsedMeasure(); err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
	}

	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	validator := validation.ConfigValidator{
		Market: validation.MarketConfig{
			UnderlyingPrice: c.Market.UnderlyingPrice,
			RiskFreeRate:    c.Market.RiskFreeRate,
			DividendYield:   c.Market.DividendYield,
		},
		Ceiling: c.Solver.ImpliedVol.Ceiling,
	}

	for _, p := range c.Positions {
		info := validation.PositionConfig{Name: p.Name, Active: p.Active}
		for _, leg := range p.Legs {
			info.Legs = append(info.Legs, validation.LegConfig{
				Type:       leg.Type,
				Strike:     leg.Strike,
				Expiry:     leg.Expiry,
				Volatility: leg.Volatility,
				Premium:    leg.Premium,
				Quantity:   leg.Quantity,
				Multiplier: leg.Multiplier,
			})
		}
		validator.Positions = append(validator.Positions, info)
	}

	m := c.MarketState()
	for _, q := range c.Quotes {
		_, in, _ := q.ToInputs(m)
		validator.Quotes = append(validator.Quotes, validation.QuoteConfig{
			Name:     q.Name,
			Type:     q.Type,
			Strike:   q.Strike,
			Expiry:   q.Expiry,
			Rate:     in.Rate,
			Dividend: in.Dividend,
			Price:    q.Price,
		})
	}

	return validator.ValidateAll()
}

// ActivePositions returns the positions marked active, in config order.
func (c *Configuration) ActivePositions() []Position {
	var active []Position
	for _, p := range c.Positions {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}
