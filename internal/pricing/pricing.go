// Package pricing implements closed-form Black-Scholes valuation of
// European vanilla options.
//
// Responsibilities:
//   - Validate market inputs and classify failures with typed errors
//   - Price calls and puts from the five standard inputs
//   - Compute the first-order greeks (delta, gamma, theta, vega, rho)
//   - Keep price and greeks consistent by deriving both from one set of
//     intermediate terms
//
// Design notes:
//   - All functions are pure and safe for concurrent use
//   - Time to expiry is a year fraction; callers convert calendar days
//     before crossing into this package
//   - Greeks are annualized and unscaled; GreeksResult.Scaled applies the
//     per-day / per-percent display convention
//   - The T=0 and sigma=0 boundaries degrade to exercise value against the
//     discounted strike instead of erroring
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

//
// ==========================
// Error taxonomy
// ==========================
//

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	// ErrInvalidInput marks inputs outside the supported domain.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNumeric marks a non-finite result escaping the internal guards.
	// Unlike ErrInvalidInput it indicates a defect in this package, not a
	// caller mistake.
	ErrNumeric = errors.New("numeric failure")
)

//
// ==========================
// Domain Types
// ==========================
//

// DaysPerYear is the calendar-day count used when converting an expiry in
// days to the year fraction this package expects.
const DaysPerYear = 365.0

// OptionType selects between the two exercise payoffs.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType maps user-facing spellings ("c", "call", "p", "put",
// any case) onto an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call":
		return Call, nil
	case "p", "put":
		return Put, nil
	}
	return "", fmt.Errorf("%w: unknown option type %q", ErrInvalidInput, s)
}

// Valid reports whether o is one of the two known types.
func (o OptionType) Valid() bool { return o == Call || o == Put }

func (o OptionType) String() string { return string(o) }

// MarketInputs are the five inputs of the Black-Scholes model plus the
// option type. TimeToExpiry is a year fraction, Rate and Volatility are
// annualized decimals (0.05 means 5%).
type MarketInputs struct {
	Spot         float64    `json:"spot"`
	Strike       float64    `json:"strike"`
	Rate         float64    `json:"rate"`
	TimeToExpiry float64    `json:"time_to_expiry"`
	Volatility   float64    `json:"volatility"`
	Type         OptionType `json:"type"`
}

// Validate checks the inputs against the supported domain. Spot and strike
// must be positive; time and volatility must be non-negative (both zero
// boundaries price as exercise value); rate may be negative but must be
// finite.
func (in MarketInputs) Validate() error {
	if !isFinite(in.Spot) || in.Spot <= 0 {
		return fmt.Errorf("%w: spot must be positive, got %g", ErrInvalidInput, in.Spot)
	}
	if !isFinite(in.Strike) || in.Strike <= 0 {
		return fmt.Errorf("%w: strike must be positive, got %g", ErrInvalidInput, in.Strike)
	}
	if !isFinite(in.Rate) {
		return fmt.Errorf("%w: rate must be finite, got %g", ErrInvalidInput, in.Rate)
	}
	if !isFinite(in.TimeToExpiry) || in.TimeToExpiry < 0 {
		return fmt.Errorf("%w: time to expiry must be non-negative, got %g", ErrInvalidInput, in.TimeToExpiry)
	}
	if !isFinite(in.Volatility) || in.Volatility < 0 {
		return fmt.Errorf("%w: volatility must be non-negative, got %g", ErrInvalidInput, in.Volatility)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown option type %q", ErrInvalidInput, string(in.Type))
	}
	return nil
}

// GreeksResult holds the five first-order sensitivities in annualized,
// unscaled convention: theta per year, vega per unit of volatility, rho
// per unit of rate.
type GreeksResult struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Scaled returns the trader-facing convention: theta per calendar day,
// vega per 1% volatility move, rho per 1% rate move. Delta and gamma are
// unchanged. Display-only; comparisons against a reference stay unscaled.
func (g GreeksResult) Scaled() GreeksResult {
	return GreeksResult{
		Delta: g.Delta,
		Gamma: g.Gamma,
		Theta: g.Theta / DaysPerYear,
		Vega:  g.Vega / 100,
		Rho:   g.Rho / 100,
	}
}

// Valuation is the full output of one evaluation.
type Valuation struct {
	Price  float64      `json:"price"`
	Greeks GreeksResult `json:"greeks"`
}

func (v Valuation) checkFinite() error {
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"price", v.Price},
		{"delta", v.Greeks.Delta},
		{"gamma", v.Greeks.Gamma},
		{"theta", v.Greeks.Theta},
		{"vega", v.Greeks.Vega},
		{"rho", v.Greeks.Rho},
	} {
		if !isFinite(f.val) {
			return fmt.Errorf("%w: %s is %g", ErrNumeric, f.name, f.val)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
