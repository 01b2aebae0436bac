// Package report renders batch outcomes for terminals and files.
//
// Responsibilities:
//   - Console table output via text/tabwriter, one block per scenario.
//   - results.json / results.csv writers for a report directory.
//   - Cell formatting through shopspring/decimal so CSV and table cells
//     stay free of float dust like 0.30000000000000004.
//
// Design notes:
//   - The per-day display convention (theta/365, vega and rho per percent
//     point) applies to the table only. JSON and CSV always carry the raw
//     annualized values, and verification verdicts always reflect the raw
//     comparison.
//   - Rejected scenarios stay in every output with their error text so a
//     batch report accounts for all of its inputs.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-pricer/internal/batch"
	"github.com/contactkeval/option-pricer/internal/pricing"
	"github.com/contactkeval/option-pricer/internal/verify"
)

// cell formats a float for human-facing cells, rounded to six decimal
// places. decimal.NewFromFloat panics on non-finite values, which can
// reach error rows through rejected inputs, so those fall back to
// strconv.
func cell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).Round(6).String()
}

// displayScale is the table display factor for one metric under the
// per-day convention. Everything else, including verdicts, stays raw.
func displayScale(field string, perDay bool) float64 {
	if !perDay {
		return 1
	}
	switch field {
	case "theta":
		return 1 / pricing.DaysPerYear
	case "vega", "rho":
		return 0.01
	}
	return 1
}

//
// --- Console table ---
//

// WriteTable renders outcomes as aligned text blocks, one per scenario.
func WriteTable(w io.Writer, outcomes []batch.Outcome, perDay bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		writeOutcome(tw, o, perDay)
	}
	return tw.Flush()
}

func writeOutcome(tw *tabwriter.Writer, o batch.Outcome, perDay bool) {
	s := o.Scenario
	fmt.Fprintf(tw, "%s (%s)\n", s.Label, s.Type)

	if o.Err != nil {
		fmt.Fprintf(tw, "  rejected: %v\n", o.Err)
		return
	}

	fmt.Fprintf(tw, "  spot=%s strike=%s rate=%s days=%s vol=%s\n",
		cell(o.Inputs.Spot), cell(o.Inputs.Strike), cell(o.Inputs.Rate),
		cell(s.TimeDays), cell(o.Inputs.Volatility))

	if o.Report != nil {
		fmt.Fprintf(tw, "  metric\tengine\t%s\t|diff|\tverdict\n", o.Report.OracleName)
		for _, f := range o.Report.Fields {
			k := displayScale(f.Field, perDay)
			verdict := "ok"
			if !f.Within {
				verdict = "MISMATCH"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
				f.Field, cell(f.Engine*k), cell(f.Oracle*k), cell(f.AbsDiff*k), verdict)
		}
		return
	}

	g := o.Valuation.Greeks
	if perDay {
		g = g.Scaled()
	}
	rows := []struct {
		name  string
		value float64
	}{
		{"price", o.Valuation.Price},
		{"delta", g.Delta},
		{"gamma", g.Gamma},
		{"theta", g.Theta},
		{"vega", g.Vega},
		{"rho", g.Rho},
	}
	fmt.Fprintf(tw, "  metric\tvalue\n")
	for _, row := range rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.name, cell(row.value))
	}
}

//
// --- JSON output ---
//

type jsonOutcome struct {
	Label        string                `json:"label"`
	Inputs       *pricing.MarketInputs `json:"inputs,omitempty"`
	Valuation    *pricing.Valuation    `json:"valuation,omitempty"`
	Verification *verify.Report        `json:"verification,omitempty"`
	Error        string                `json:"error,omitempty"`
}

type document struct {
	Results []jsonOutcome `json:"results"`
}

func buildDocument(outcomes []batch.Outcome) document {
	doc := document{Results: make([]jsonOutcome, 0, len(outcomes))}
	for _, o := range outcomes {
		row := jsonOutcome{Label: o.Scenario.Label}
		if o.Err != nil {
			row.Error = o.Err.Error()
			doc.Results = append(doc.Results, row)
			continue
		}
		in, val := o.Inputs, o.Valuation
		row.Inputs = &in
		row.Valuation = &val
		row.Verification = o.Report
		doc.Results = append(doc.Results, row)
	}
	return doc
}

// EncodeJSON writes outcomes to w as one indented JSON document.
func EncodeJSON(w io.Writer, outcomes []batch.Outcome) error {
	b, err := json.MarshalIndent(buildDocument(outcomes), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// WriteJSON writes results.json into outdir.
func WriteJSON(outcomes []batch.Outcome, outdir string) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, outcomes); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "results.json"), buf.Bytes(), 0644)
}

//
// --- CSV output ---
//

// WriteCSV writes results.csv into outdir, one row per scenario with
// raw annualized greeks.
func WriteCSV(outcomes []batch.Outcome, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "results.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	headers := []string{"label", "type", "spot", "strike", "rate", "time_days", "volatility", "price", "delta", "gamma", "theta", "vega", "rho", "verified", "max_abs_diff", "error"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, o := range outcomes {
		if err := w.Write(csvRow(o)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvRow(o batch.Outcome) []string {
	s := o.Scenario
	if o.Err != nil {
		return []string{s.Label, s.Type, cell(s.Spot), "", cell(s.Rate), cell(s.TimeDays), cell(s.Volatility), "", "", "", "", "", "", "", "", o.Err.Error()}
	}
	g := o.Valuation.Greeks
	verified, maxDiff := "", ""
	if o.Report != nil {
		verified = "ok"
		if !o.Report.OK() {
			verified = "mismatch"
		}
		maxDiff = cell(maxAbsDiff(o.Report))
	}
	return []string{
		s.Label, string(o.Inputs.Type),
		cell(o.Inputs.Spot), cell(o.Inputs.Strike), cell(o.Inputs.Rate), cell(s.TimeDays), cell(o.Inputs.Volatility),
		cell(o.Valuation.Price), cell(g.Delta), cell(g.Gamma), cell(g.Theta), cell(g.Vega), cell(g.Rho),
		verified, maxDiff, "",
	}
}

func maxAbsDiff(rep *verify.Report) float64 {
	worst := 0.0
	for _, f := range rep.Fields {
		if f.AbsDiff > worst {
			worst = f.AbsDiff
		}
	}
	return worst
}
