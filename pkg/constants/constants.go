// Package constants provides shared constants for the options-risk application.
package constants

import "time"

// Model constants
const (
	// DaysPerYear converts annual theta into calendar-day decay.
	DaysPerYear = 365.0

	// DefaultUnderlyingShares is the per-contract share count used to scale vega and rho.
	DefaultUnderlyingShares = 100.0

	// DefaultContractMultiplier is the number of shares one option contract controls.
	DefaultContractMultiplier = 100.0

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Solver defaults
const (
	// ImpliedVolInitialGuess seeds every implied volatility search.
	ImpliedVolInitialGuess = 0.5

	// ImpliedVolCeiling caps a converged implied volatility.
	ImpliedVolCeiling = 5.0

	// ImpliedVolTolerance is the price residual accepted as converged.
	ImpliedVolTolerance = 1e-5

	// ImpliedVolStepTolerance is the relative volatility step accepted as converged.
	ImpliedVolStepTolerance = 1e-5

	// ImpliedVolMaxIterations bounds the implied volatility search.
	ImpliedVolMaxIterations = 5000

	// BreakevenTolerance is the dollar payoff residual accepted as converged.
	BreakevenTolerance = 1e-2

	// BreakevenMaxIterations bounds the breakeven search.
	BreakevenMaxIterations = 500

	// DeltaNeutralTolerance is the position delta residual accepted as converged.
	DeltaNeutralTolerance = 1e-5

	// DeltaNeutralMaxIterations bounds the delta-neutral search.
	DeltaNeutralMaxIterations = 5000
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DateLayout is the format of dates in config files
	DateLayout = "2006-01-02"

	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerReadTimeout bounds reading a request, body included
	DefaultServerReadTimeout = 30 * time.Second

	// DefaultServerWriteTimeout bounds writing a response
	DefaultServerWriteTimeout = 60 * time.Second

	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Validation constants
const (
	// AggregateTolerance bounds the difference between an aggregate and its summed components.
	AggregateTolerance = 1e-8

	// MaxReasonableExpiryYears is the expiry above which a leg draws a warning.
	MaxReasonableExpiryYears = 30.0

	// DefaultSweepSteps is the number of grid points used when a sweep omits steps.
	DefaultSweepSteps = 41

	// DefaultLogLevel is used when neither config nor CLI sets a level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is used when the config does not set a format.
	DefaultLogFormat = "json"
)
