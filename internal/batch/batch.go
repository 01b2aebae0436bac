// Package batch runs sets of scenarios through the pricing engine,
// optionally cross-checking each against the reference oracle.
//
// Evaluations are pure and independent, so the runner can fan out over a
// bounded worker pool; outcomes always land in input order.
package batch

import (
	"context"
	"errors"
	"sync"

	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/oracle"
	"github.com/contactkeval/option-pricer/internal/pricing"
	"github.com/contactkeval/option-pricer/internal/scenario"
	"github.com/contactkeval/option-pricer/internal/verify"
)

// Runner evaluates scenarios. Zero value runs sequentially without
// verification; set Oracle and Verify for cross-checking.
type Runner struct {
	Oracle    oracle.Oracle
	Tolerance float64
	Verify    bool
	Workers   int
}

// Outcome is the result of one scenario. Exactly one of Err or Valuation
// is meaningful; Report is present when verification ran.
type Outcome struct {
	Scenario  scenario.Scenario    `json:"scenario"`
	Inputs    pricing.MarketInputs `json:"inputs"`
	Valuation pricing.Valuation    `json:"valuation"`
	Report    *verify.Report       `json:"verification,omitempty"`
	Err       error                `json:"-"`
}

// Run evaluates every scenario and returns outcomes in input order.
// Per-scenario failures are recorded on the outcome, not returned; the
// error reports empty input or context cancellation only.
func (r *Runner) Run(ctx context.Context, scenarios []scenario.Scenario) ([]Outcome, error) {
	if len(scenarios) == 0 {
		return nil, errors.New("no scenarios to run")
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(scenarios) {
		workers = len(scenarios)
	}
	logger.Debugf("event=batch_start scenarios=%d workers=%d verify=%v", len(scenarios), workers, r.Verify)

	outcomes := make([]Outcome, len(scenarios))

	if workers == 1 {
		for i, s := range scenarios {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = r.eval(s)
		}
		return outcomes, nil
	}

	// Each worker writes only its own index, so the slice needs no lock
	// and output order matches input order regardless of scheduling.
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = r.eval(scenarios[i])
			}
		}()
	}

	var ctxErr error
	for i := range scenarios {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr != nil {
		return nil, ctxErr
	}
	return outcomes, nil
}

func (r *Runner) eval(s scenario.Scenario) Outcome {
	out := Outcome{Scenario: s}

	in, err := s.MarketInputs()
	if err != nil {
		logger.Errorf("scenario %s rejected: %v", s.Label, err)
		out.Err = err
		return out
	}
	out.Inputs = in

	if r.Verify && r.Oracle != nil {
		rep, err := verify.Run(in, r.Oracle, r.Tolerance)
		if err != nil {
			out.Err = err
			return out
		}
		out.Valuation = rep.Engine
		out.Report = rep
		if !rep.OK() {
			logger.Warnf("scenario %s: %d field(s) beyond tolerance %g against %s",
				s.Label, len(rep.Mismatches()), rep.Tolerance, rep.OracleName)
		}
		return out
	}

	v, err := pricing.Evaluate(in)
	if err != nil {
		out.Err = err
		return out
	}
	out.Valuation = v
	logger.Tracef("event=scenario_priced label=%s price=%.6f", s.Label, v.Price)
	return out
}
