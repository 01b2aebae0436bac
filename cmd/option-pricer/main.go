package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/contactkeval/option-pricer/internal/batch"
	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/oracle"
	"github.com/contactkeval/option-pricer/internal/report"
	"github.com/contactkeval/option-pricer/internal/scenario"
	"github.com/contactkeval/option-pricer/internal/server"
	"github.com/contactkeval/option-pricer/internal/verify"
)

func main() {
	def := scenario.Defaults()

	spot := flag.Float64("price", def.Spot, "underlying asset price (S)")
	strike := flag.Float64("strike", def.Strike, "strike price (K)")
	strikeRule := flag.String("strike-rule", "", "strike rule: ATM, ATM:+5, ATM:+10%, ABS:42.5, DELTA:30, or an expression over S")
	rate := flag.Float64("rate", def.Rate, "risk-free interest rate (r)")
	timeDays := flag.Float64("time", def.TimeDays, "time to expiration in days")
	vol := flag.Float64("volatility", def.Volatility, "volatility (sigma)")
	typ := flag.String("type", "c", "option type: 'c' for call, 'p' for put")
	label := flag.String("label", def.Label, "scenario label used in reports")

	configPath := flag.String("config", "", "path to a JSON or YAML scenario batch")
	doVerify := flag.Bool("verify", true, "cross-check results against the reference oracle")
	tolerance := flag.Float64("tolerance", verify.DefaultTolerance, "absolute agreement required per field")
	perDay := flag.Bool("per-day", false, "display theta per day, vega and rho per percent point")
	workers := flag.Int("workers", 0, "parallel evaluations for batches (<=1 runs sequentially)")
	jsonOut := flag.Bool("json", false, "emit JSON on stdout instead of the table")
	reportDir := flag.String("report-dir", "", "write results.json and results.csv here")
	verbosity := flag.Int("v", 1, "verbosity: 0=errors 1=info 2=debug 3=trace")

	rest := flag.Bool("rest", false, "run as REST server")
	port := flag.String("port", ":8080", "REST server listen address")
	flag.Parse()

	logger.SetVerbosity(*verbosity)

	if *rest {
		srv := server.New(oracle.Gonum(), *tolerance)
		log.Printf("[info] starting REST server on %s", *port)
		log.Fatal(http.ListenAndServe(*port, srv.Handler()))
		return
	}

	run := batch.Runner{
		Oracle:    oracle.Gonum(),
		Tolerance: *tolerance,
		Verify:    *doVerify,
		Workers:   *workers,
	}

	var scenarios []scenario.Scenario
	outDir := *reportDir
	usePerDay := *perDay

	if *configPath != "" {
		b, err := scenario.Load(*configPath)
		if err != nil {
			log.Fatalf("reading config: %v", err)
		}
		scenarios = b.Scenarios
		// batch settings fill in whatever the flags left at defaults
		if b.Tolerance > 0 {
			run.Tolerance = b.Tolerance
		}
		if run.Workers == 0 {
			run.Workers = b.Workers
		}
		run.Verify = run.Verify && b.VerifyEnabled()
		if b.PerDay {
			usePerDay = true
		}
		if outDir == "" {
			outDir = b.ReportDir
		}
		if b.Verbosity > 0 {
			logger.SetVerbosity(b.Verbosity)
		}
	} else {
		scenarios = []scenario.Scenario{{
			Label:      *label,
			Spot:       *spot,
			Strike:     *strike,
			StrikeRule: *strikeRule,
			Rate:       *rate,
			TimeDays:   *timeDays,
			Volatility: *vol,
			Type:       *typ,
		}}
	}

	log.Printf("[info] evaluating %d scenarios, verify=%v, tolerance=%g", len(scenarios), run.Verify, run.Tolerance)

	start := time.Now()
	outcomes, err := run.Run(context.Background(), scenarios)
	if err != nil {
		log.Fatalf("batch failed: %v", err)
	}

	if *jsonOut {
		if err := report.EncodeJSON(os.Stdout, outcomes); err != nil {
			log.Fatalf("encoding results: %v", err)
		}
	} else if err := report.WriteTable(os.Stdout, outcomes, usePerDay); err != nil {
		log.Fatalf("writing table: %v", err)
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			log.Printf("[warn] could not create report dir %s: %v", outDir, err)
		} else {
			_ = report.WriteJSON(outcomes, outDir)
			_ = report.WriteCSV(outcomes, outDir)
			log.Printf("[info] wrote results.json and results.csv to %s", outDir)
		}
	}

	rejected := 0
	for _, o := range outcomes {
		if o.Err != nil {
			rejected++
		}
	}
	log.Printf("[done] evaluated %d scenarios in %v", len(outcomes), time.Since(start))
	if rejected > 0 {
		log.Fatalf("%d of %d scenarios rejected", rejected, len(outcomes))
	}
}
