package pricing

import (
	"fmt"
	"math"
)

const sqrt2Pi = 2.5066282746310002

// exp overflows float64 a little past 709; the discount exponent is
// clamped well inside that so extreme rate*time products stay finite.
const maxExpArg = 700.0

//
// ==========================
// Intermediate Terms
// ==========================
//

// Terms are the shared intermediates of the Black-Scholes closed form.
// Price and greeks are both derived from one Terms value, so they can
// never disagree on d1/d2.
type Terms struct {
	D1       float64
	D2       float64
	SqrtT    float64
	Discount float64 // e^(-r*T)

	// Degenerate is set at the T=0 or sigma=0 boundary, where d1/d2 are
	// undefined and evaluation falls back to exercise value.
	Degenerate bool
}

// NewTerms derives the intermediate terms for one set of inputs. Inputs
// are assumed validated.
func NewTerms(in MarketInputs) Terms {
	tm := Terms{
		SqrtT:    math.Sqrt(in.TimeToExpiry),
		Discount: discount(in.Rate, in.TimeToExpiry),
	}
	if in.TimeToExpiry == 0 || in.Volatility == 0 {
		tm.Degenerate = true
		return tm
	}
	tm.D1 = (math.Log(in.Spot/in.Strike) + (in.Rate+0.5*in.Volatility*in.Volatility)*in.TimeToExpiry) /
		(in.Volatility * tm.SqrtT)
	tm.D2 = tm.D1 - in.Volatility*tm.SqrtT
	return tm
}

func discount(r, t float64) float64 {
	rt := r * t
	if rt > maxExpArg {
		rt = maxExpArg
	} else if rt < -maxExpArg {
		rt = -maxExpArg
	}
	return math.Exp(-rt)
}

//
// ==========================
// Engine entry points
// ==========================
//

// Price returns the Black-Scholes value of the option. At the T=0
// boundary this is the intrinsic value; at sigma=0 it is the exercise
// value against the discounted strike.
func Price(in MarketInputs) (float64, error) {
	v, err := Evaluate(in)
	if err != nil {
		return 0, err
	}
	return v.Price, nil
}

// Greeks returns the five sensitivities for the option. Gamma, vega,
// theta and rho report 0 at the T=0 / sigma=0 boundary; delta degrades to
// the exercise indicator (see degenerateGreeks).
func Greeks(in MarketInputs) (GreeksResult, error) {
	v, err := Evaluate(in)
	if err != nil {
		return GreeksResult{}, err
	}
	return v.Greeks, nil
}

// Evaluate computes price and greeks from one shared Terms derivation.
func Evaluate(in MarketInputs) (Valuation, error) {
	if err := in.Validate(); err != nil {
		return Valuation{}, err
	}
	tm := NewTerms(in)
	v := Valuation{
		Price:  price(in, tm),
		Greeks: greeks(in, tm),
	}
	if err := v.checkFinite(); err != nil {
		return Valuation{}, err
	}
	return v, nil
}

//
// ==========================
// Closed form
// ==========================
//

func price(in MarketInputs, tm Terms) float64 {
	if tm.Degenerate {
		return degeneratePrice(in, tm)
	}
	if in.Type == Call {
		return in.Spot*normCDF(tm.D1) - in.Strike*tm.Discount*normCDF(tm.D2)
	}
	return in.Strike*tm.Discount*normCDF(-tm.D2) - in.Spot*normCDF(-tm.D1)
}

func greeks(in MarketInputs, tm Terms) GreeksResult {
	if tm.Degenerate {
		return degenerateGreeks(in, tm)
	}

	pdfD1 := normPDF(tm.D1)
	g := GreeksResult{
		Gamma: pdfD1 / (in.Spot * in.Volatility * tm.SqrtT),
		Vega:  in.Spot * pdfD1 * tm.SqrtT,
	}

	decay := -(in.Spot * pdfD1 * in.Volatility) / (2 * tm.SqrtT)
	carry := in.Rate * in.Strike * tm.Discount

	if in.Type == Call {
		g.Delta = normCDF(tm.D1)
		g.Theta = decay - carry*normCDF(tm.D2)
		g.Rho = in.Strike * in.TimeToExpiry * tm.Discount * normCDF(tm.D2)
		return g
	}
	g.Delta = normCDF(tm.D1) - 1
	g.Theta = decay + carry*normCDF(-tm.D2)
	g.Rho = -in.Strike * in.TimeToExpiry * tm.Discount * normCDF(-tm.D2)
	return g
}

// degeneratePrice is the closed-form limit at T=0 or sigma=0: exercise
// value against the discounted strike. At T=0 the discount is 1, so this
// reduces to plain intrinsic value.
func degeneratePrice(in MarketInputs, tm Terms) float64 {
	if in.Type == Call {
		return math.Max(0, in.Spot-in.Strike*tm.Discount)
	}
	return math.Max(0, in.Strike*tm.Discount-in.Spot)
}

// degenerateGreeks reports the boundary sensitivities: curvature and
// sensitivity greeks collapse to 0 and delta becomes the exercise
// indicator against the discounted strike. Exactly at the money the
// option counts as unexercised, so delta is 0 there.
func degenerateGreeks(in MarketInputs, tm Terms) GreeksResult {
	var g GreeksResult
	forward := in.Strike * tm.Discount
	switch {
	case in.Type == Call && in.Spot > forward:
		g.Delta = 1
	case in.Type == Put && in.Spot < forward:
		g.Delta = -1
	}
	return g
}

//
// ==========================
// Strike analytics
// ==========================
//

// StrikeFromDelta returns the strike at which a European call with the
// same spot, rate, expiry and volatility has the target delta. It inverts
// d1 through the normal quantile; no price inversion is involved.
//
// targetDelta must lie strictly inside (0, 1) and the inputs need
// positive time and volatility.
func StrikeFromDelta(in MarketInputs, targetDelta float64) (float64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	if targetDelta <= 0 || targetDelta >= 1 {
		return 0, fmt.Errorf("%w: target delta must be in (0,1), got %g", ErrInvalidInput, targetDelta)
	}
	if in.TimeToExpiry == 0 || in.Volatility == 0 {
		return 0, fmt.Errorf("%w: strike from delta needs positive time and volatility", ErrInvalidInput)
	}

	// delta = CDF(d1) pins d1; solving the d1 definition for K gives the
	// strike directly.
	d1 := NormInv(targetDelta)
	sqrtT := math.Sqrt(in.TimeToExpiry)
	k := in.Spot / math.Exp(d1*in.Volatility*sqrtT-(in.Rate+0.5*in.Volatility*in.Volatility)*in.TimeToExpiry)
	if !isFinite(k) || k <= 0 {
		return 0, fmt.Errorf("%w: strike from delta produced %g", ErrNumeric, k)
	}
	return k, nil
}

//
// ==========================
// Standard normal
// ==========================
//

// normPDF is the standard normal density exp(-x^2/2)/sqrt(2*pi).
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

// normCDF is the standard normal distribution function, computed through
// the error function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// NormInv computes the standard normal quantile using Acklam's rational
// approximation, accurate to about 1.15e-9 over the full range.
//
// Panics if p is not strictly between 0 and 1.
func NormInv(p float64) float64 {
	if p <= 0 || p >= 1 {
		panic("NormInv: p must be in (0,1)")
	}

	// Coefficients
	a := []float64{
		-3.969683028665376e+01,
		2.209460984245205e+02,
		-2.759285104469687e+02,
		1.383577518672690e+02,
		-3.066479806614716e+01,
		2.506628277459239e+00,
	}

	b := []float64{
		-5.447609879822406e+01,
		1.615858368580409e+02,
		-1.556989798598866e+02,
		6.680131188771972e+01,
		-1.328068155288572e+01,
	}

	c := []float64{
		-7.784894002430293e-03,
		-3.223964580411365e-01,
		-2.400758277161838e+00,
		-2.549732539343734e+00,
		4.374664141464968e+00,
		2.938163982698783e+00,
	}

	d := []float64{
		7.784695709041462e-03,
		3.224671290700398e-01,
		2.445134137142996e+00,
		3.754408661907416e+00,
	}

	plow := 0.02425
	phigh := 1 - plow

	var q, r float64

	if p < plow {
		q = math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	if p > phigh {
		q = math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	q = p - 0.5
	r = q * q
	return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
		(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
}
