// Package verify cross-checks the pricing engine against a reference
// oracle.
//
// A verification run evaluates both implementations on identical inputs
// and reports field-by-field deviations. Mismatches are diagnostics: the
// engine value stays authoritative, nothing is auto-corrected, and a
// breach never fails the run.
package verify

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/oracle"
	"github.com/contactkeval/option-pricer/internal/pricing"
)

// DefaultTolerance is the absolute agreement required per field before it
// is flagged.
const DefaultTolerance = 1e-4

// FieldDiff compares one output field between engine and oracle.
type FieldDiff struct {
	Field   string  `json:"field"`
	Engine  float64 `json:"engine"`
	Oracle  float64 `json:"oracle"`
	AbsDiff float64 `json:"abs_diff"`
	RelDiff float64 `json:"rel_diff"` // abs diff over the larger magnitude; 0 when both sides are 0
	Within  bool    `json:"within"`
}

// Report is the outcome of one verification run. Reports are produced per
// evaluation and never persisted by this package.
type Report struct {
	OracleName string            `json:"oracle"`
	Tolerance  float64           `json:"tolerance"`
	Engine     pricing.Valuation `json:"engine"`
	Reference  pricing.Valuation `json:"reference"`
	Fields     []FieldDiff       `json:"fields"`
}

// OK reports whether every field agreed within tolerance.
func (r *Report) OK() bool {
	for _, f := range r.Fields {
		if !f.Within {
			return false
		}
	}
	return true
}

// Mismatches returns the fields outside tolerance.
func (r *Report) Mismatches() []FieldDiff {
	var out []FieldDiff
	for _, f := range r.Fields {
		if !f.Within {
			out = append(out, f)
		}
	}
	return out
}

// Run evaluates engine and oracle on the same inputs and compares price
// and greeks in the unscaled convention. Input validation failures abort
// before either side runs; a tolerance breach only flags the report.
func Run(in pricing.MarketInputs, o oracle.Oracle, tol float64) (*Report, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	engine, err := pricing.Evaluate(in)
	if err != nil {
		return nil, fmt.Errorf("engine evaluation: %w", err)
	}
	ref, err := o.Evaluate(in)
	if err != nil {
		return nil, fmt.Errorf("oracle %s: %w", o.Name(), err)
	}

	rep := &Report{
		OracleName: o.Name(),
		Tolerance:  tol,
		Engine:     engine,
		Reference:  ref,
		Fields: []FieldDiff{
			diff("price", engine.Price, ref.Price, tol),
			diff("delta", engine.Greeks.Delta, ref.Greeks.Delta, tol),
			diff("gamma", engine.Greeks.Gamma, ref.Greeks.Gamma, tol),
			diff("theta", engine.Greeks.Theta, ref.Greeks.Theta, tol),
			diff("vega", engine.Greeks.Vega, ref.Greeks.Vega, tol),
			diff("rho", engine.Greeks.Rho, ref.Greeks.Rho, tol),
		},
	}

	for _, f := range rep.Mismatches() {
		logger.Warnf(
			"reference mismatch field=%s engine=%g oracle=%s:%g abs_diff=%g tol=%g",
			f.Field, f.Engine, rep.OracleName, f.Oracle, f.AbsDiff, tol,
		)
	}
	return rep, nil
}

func diff(field string, engine, ref, tol float64) FieldDiff {
	d := math.Abs(engine - ref)
	rel := 0.0
	if scale := math.Max(math.Abs(engine), math.Abs(ref)); scale > 0 {
		rel = d / scale
	}
	return FieldDiff{
		Field:   field,
		Engine:  engine,
		Oracle:  ref,
		AbsDiff: d,
		RelDiff: rel,
		Within:  d <= tol,
	}
}
