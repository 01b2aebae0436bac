package scenario

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/pricing"
)

// ErrInvalidStrikeRule is a typed error so callers and tests can detect
// rule failures without string matching.
var ErrInvalidStrikeRule = errors.New("invalid strike rule")

// ResolveStrike converts a strike rule into a concrete strike.
//
// Supported forms:
//   - ABS:40                   fixed strike
//   - ATM                      the spot itself
//   - ATM:+5, ATM:-2.5         spot plus an absolute offset
//   - ATM:+10%, ATM:-20%       spot plus a percentage offset
//   - DELTA:30 or DELTA:0.3    the strike where a same-terms call has 0.30 delta
//   - S*1.05                   any arithmetic expression over the spot S
//
// Rules are case-insensitive. DELTA targets use the call-delta convention
// regardless of the scenario's option type.
func ResolveStrike(rule string, s Scenario) (float64, error) {
	expr := strings.ToUpper(strings.TrimSpace(rule))
	logger.Debugf("event=resolve_strike rule=%s spot=%.4f", expr, s.Spot)

	switch {
	case expr == "ATM":
		return s.Spot, nil

	case strings.HasPrefix(expr, "ABS:"):
		k, err := strconv.ParseFloat(strings.TrimPrefix(expr, "ABS:"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeRule, rule)
		}
		return k, nil

	case strings.HasPrefix(expr, "ATM:"):
		return atmOffset(strings.TrimPrefix(expr, "ATM:"), s.Spot, rule)

	case strings.HasPrefix(expr, "DELTA:"):
		return deltaStrike(strings.TrimPrefix(expr, "DELTA:"), s, rule)
	}

	return evalExpression(expr, s.Spot, rule)
}

// atmOffset applies an absolute or percentage offset to the spot, rounded
// to cents.
func atmOffset(offset string, spot float64, rule string) (float64, error) {
	if strings.HasSuffix(offset, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(offset, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeRule, rule)
		}
		return math.Round((spot+spot*pct/100)*100) / 100, nil
	}

	abs, err := strconv.ParseFloat(offset, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeRule, rule)
	}
	return math.Round((spot+abs)*100) / 100, nil
}

// deltaStrike resolves a delta target through the closed-form inversion.
// DELTA:30 is shorthand for a 0.30 delta.
func deltaStrike(raw string, s Scenario, rule string) (float64, error) {
	target, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeRule, rule)
	}
	if target >= 1 {
		target /= 100
	}

	in := pricing.MarketInputs{
		Spot:         s.Spot,
		Strike:       s.Spot, // placeholder, the inversion ignores it
		Rate:         s.Rate,
		TimeToExpiry: s.TimeDays / pricing.DaysPerYear,
		Volatility:   s.Volatility,
		Type:         pricing.Call,
	}
	k, err := pricing.StrikeFromDelta(in, target)
	if err != nil {
		return 0, err
	}
	logger.Tracef("event=delta_strike target=%.4f strike=%.4f", target, k)
	return k, nil
}

// evalExpression hands anything else to govaluate with the spot bound to
// S.
func evalExpression(expr string, spot float64, rule string) (float64, error) {
	parsed, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeRule, rule, err)
	}
	res, err := parsed.Evaluate(map[string]interface{}{"S": spot})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeRule, rule, err)
	}
	k, ok := res.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s evaluates to %T, not a number", ErrInvalidStrikeRule, rule, res)
	}
	return k, nil
}
