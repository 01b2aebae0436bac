// Package oracle provides an independent Black-Scholes valuation the
// engine can be cross-checked against.
//
// Responsibilities:
//   - Define the single-call interface verification runs against
//   - Ship a production implementation on gonum's normal distribution
//   - Stay numerically independent of internal/pricing
//
// Design notes:
//   - Input and output types come from the pricing package so comparisons
//     line up field for field; only the math is independent
//   - Validation and the T=0 / sigma=0 boundary policy mirror the engine,
//     so a boundary comparison measures arithmetic rather than policy
package oracle

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-pricer/internal/pricing"
)

// Oracle is a reference valuation source.
type Oracle interface {
	Name() string
	Evaluate(in pricing.MarketInputs) (pricing.Valuation, error)
}

// Func adapts a plain function to the Oracle interface. Useful for test
// stand-ins.
type Func struct {
	Label string
	Fn    func(pricing.MarketInputs) (pricing.Valuation, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) Evaluate(in pricing.MarketInputs) (pricing.Valuation, error) {
	return f.Fn(in)
}

// Gonum returns the production oracle.
func Gonum() Oracle { return gonumOracle{} }

type gonumOracle struct{}

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// exp overflows float64 a little past 709. The clamp matches the engine's,
// so extreme rate*time products degrade identically on both sides of a
// comparison.
const maxExpArg = 700.0

func (gonumOracle) Name() string { return "gonum" }

func (gonumOracle) Evaluate(in pricing.MarketInputs) (pricing.Valuation, error) {
	if err := in.Validate(); err != nil {
		return pricing.Valuation{}, err
	}

	S, K := in.Spot, in.Strike
	r, T, sigma := in.Rate, in.TimeToExpiry, in.Volatility
	deflater := deflate(r, T)

	if T == 0 || sigma == 0 {
		return degenerate(in, deflater), nil
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	var v pricing.Valuation
	pdfD1 := stdNormal.Prob(d1)
	v.Greeks.Gamma = pdfD1 / (S * sigma * sqrtT)
	v.Greeks.Vega = S * pdfD1 * sqrtT
	decay := -(S * pdfD1 * sigma) / (2 * sqrtT)

	if in.Type == pricing.Call {
		nd1 := stdNormal.CDF(d1)
		nd2 := stdNormal.CDF(d2)
		v.Price = S*nd1 - K*deflater*nd2
		v.Greeks.Delta = nd1
		v.Greeks.Theta = decay - r*K*deflater*nd2
		v.Greeks.Rho = K * T * deflater * nd2
		return v, nil
	}

	nd1 := stdNormal.CDF(-d1)
	nd2 := stdNormal.CDF(-d2)
	v.Price = K*deflater*nd2 - S*nd1
	v.Greeks.Delta = stdNormal.CDF(d1) - 1
	v.Greeks.Theta = decay + r*K*deflater*nd2
	v.Greeks.Rho = -K * T * deflater * nd2
	return v, nil
}

// degenerate follows the engine's boundary policy: exercise value against
// the discounted strike, indicator delta, other greeks zero.
func degenerate(in pricing.MarketInputs, deflater float64) pricing.Valuation {
	var v pricing.Valuation
	forward := in.Strike * deflater
	switch {
	case in.Type == pricing.Call && in.Spot > forward:
		v.Price = in.Spot - forward
		v.Greeks.Delta = 1
	case in.Type == pricing.Put && in.Spot < forward:
		v.Price = forward - in.Spot
		v.Greeks.Delta = -1
	}
	return v
}

func deflate(r, t float64) float64 {
	rt := r * t
	if rt > maxExpArg {
		rt = maxExpArg
	} else if rt < -maxExpArg {
		rt = -maxExpArg
	}
	return math.Exp(-rt)
}
