package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-pricer/internal/batch"
	"github.com/contactkeval/option-pricer/internal/pricing"
	"github.com/contactkeval/option-pricer/internal/scenario"
	"github.com/contactkeval/option-pricer/internal/testutil"
	"github.com/contactkeval/option-pricer/internal/verify"
)

// sampleOutcomes covers the three outcome shapes: plain valuation,
// verified valuation, and a rejected scenario. Values are picked to
// format exactly.
func sampleOutcomes() []batch.Outcome {
	val := pricing.Valuation{
		Price:  8.5,
		Greeks: pricing.GreeksResult{Delta: 0.5, Gamma: 0.02, Theta: -5.25, Vega: 39.5, Rho: 35.125},
	}
	clean := batch.Outcome{
		Scenario: scenario.Scenario{Label: "clean", Spot: 100, Strike: 110, Rate: 0.05, TimeDays: 365, Volatility: 0.25, Type: "call"},
		Inputs: pricing.MarketInputs{
			Spot: 100, Strike: 110, Rate: 0.05, TimeToExpiry: 1, Volatility: 0.25, Type: pricing.Call,
		},
		Valuation: val,
	}

	checked := clean
	checked.Scenario.Label = "checked"
	checked.Report = &verify.Report{
		OracleName: "gonum",
		Tolerance:  0.0001,
		Engine:     val,
		Reference:  val,
		Fields: []verify.FieldDiff{
			{Field: "price", Engine: 8.5, Oracle: 8.5, Within: true},
			{Field: "delta", Engine: 0.5, Oracle: 0.5, Within: true},
			{Field: "gamma", Engine: 0.02, Oracle: 0.02, Within: true},
			{Field: "theta", Engine: -5.25, Oracle: -5.25, Within: true},
			{Field: "vega", Engine: 39.5, Oracle: 39.5, Within: true},
			{Field: "rho", Engine: 35.125, Oracle: 35.125, Within: true},
		},
	}

	broken := batch.Outcome{
		Scenario: scenario.Scenario{Label: "broken", Spot: -4, Type: "put"},
		Err:      errors.New("bad spot"),
	}

	return []batch.Outcome{clean, checked, broken}
}

func TestCellFormatting(t *testing.T) {
	assert.Equal(t, "0.3", cell(0.1+0.2))
	assert.Equal(t, "10.450584", cell(10.450583572185565))
	assert.Equal(t, "100", cell(100))
	assert.Equal(t, "-5.25", cell(-5.25))
	assert.Equal(t, "+Inf", cell(math.Inf(1)))
	assert.Equal(t, "NaN", cell(math.NaN()))
}

func TestJSONDocumentGolden(t *testing.T) {
	testutil.CompareWithGolden(t, "results", buildDocument(sampleOutcomes()))
}

func TestWriteJSONCreatesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteJSON(sampleOutcomes(), dir))

	b, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(b))
	assert.Contains(t, string(b), `"label": "clean"`)
	assert.Contains(t, string(b), `"error": "bad spot"`)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSV(sampleOutcomes(), dir))

	f, err := os.Open(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "label", rows[0][0])
	assert.Equal(t, "rho", rows[0][12])
	assert.Equal(t, "error", rows[0][15])

	assert.Equal(t,
		[]string{"clean", "call", "100", "110", "0.05", "365", "0.25", "8.5", "0.5", "0.02", "-5.25", "39.5", "35.125", "", "", ""},
		rows[1])

	assert.Equal(t, "checked", rows[2][0])
	assert.Equal(t, "ok", rows[2][13])
	assert.Equal(t, "0", rows[2][14])

	assert.Equal(t, "broken", rows[3][0])
	assert.Equal(t, "-4", rows[3][2])
	assert.Equal(t, "", rows[3][7])
	assert.Equal(t, "bad spot", rows[3][15])
}

func TestTableRendering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleOutcomes(), false))
	text := buf.String()

	assert.Contains(t, text, "clean (call)")
	assert.Contains(t, text, "spot=100 strike=110 rate=0.05 days=365 vol=0.25")
	assert.Contains(t, text, "8.5")
	assert.Contains(t, text, "gonum")
	assert.Contains(t, text, "rejected: bad spot")
	assert.NotContains(t, text, "MISMATCH")
}

func TestTableFlagsMismatchAndScalesDisplay(t *testing.T) {
	o := batch.Outcome{
		Scenario: scenario.Scenario{Label: "drift", Spot: 50, Strike: 50, Rate: 0, TimeDays: 365, Volatility: 0.2, Type: "call"},
		Inputs: pricing.MarketInputs{
			Spot: 50, Strike: 50, Rate: 0, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Call,
		},
		Report: &verify.Report{
			OracleName: "gonum",
			Tolerance:  1e-4,
			Fields: []verify.FieldDiff{
				{Field: "theta", Engine: -365, Oracle: -365, Within: true},
				{Field: "vega", Engine: 200, Oracle: 100, AbsDiff: 100, RelDiff: 0.5, Within: false},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []batch.Outcome{o}, true))
	text := buf.String()

	// Verdict comes from the raw comparison even though the display scales.
	assert.Contains(t, text, "MISMATCH")
	assert.Contains(t, text, "-1")
	assert.NotContains(t, text, "-365")
	assert.NotContains(t, text, "200")
}

func TestTablePerDayScalesPlainValues(t *testing.T) {
	o := batch.Outcome{
		Scenario: scenario.Scenario{Label: "plain", Spot: 50, Strike: 50, Rate: 0, TimeDays: 365, Volatility: 0.2, Type: "put"},
		Inputs: pricing.MarketInputs{
			Spot: 50, Strike: 50, Rate: 0, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Put,
		},
		Valuation: pricing.Valuation{
			Price:  4,
			Greeks: pricing.GreeksResult{Delta: -0.5, Gamma: 0.04, Theta: -730, Vega: 250, Rho: -25},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []batch.Outcome{o}, true))
	text := buf.String()

	assert.Contains(t, text, "-2")
	assert.Contains(t, text, "2.5")
	assert.Contains(t, text, "-0.25")
	assert.NotContains(t, text, "-730")
	assert.NotContains(t, text, "250")
}
