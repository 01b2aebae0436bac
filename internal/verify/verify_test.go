package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-pricer/internal/oracle"
	"github.com/contactkeval/option-pricer/internal/pricing"
)

// The engine and the gonum oracle should agree far inside the default
// tolerance across representative inputs, boundaries included.
func TestEngineAgreesWithGonumOracle(t *testing.T) {
	cases := []pricing.MarketInputs{
		{Spot: 34.03, Strike: 40, Rate: 0.0412, TimeToExpiry: 30.0 / pricing.DaysPerYear, Volatility: 0.35, Type: pricing.Call},
		{Spot: 34.03, Strike: 40, Rate: 0.0412, TimeToExpiry: 30.0 / pricing.DaysPerYear, Volatility: 0.35, Type: pricing.Put},
		{Spot: 100, Strike: 100, Rate: 0.05, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Call},
		{Spot: 250, Strike: 180, Rate: -0.01, TimeToExpiry: 2.5, Volatility: 0.6, Type: pricing.Put},
		{Spot: 100, Strike: 100, Rate: 0, TimeToExpiry: 0, Volatility: 0.2, Type: pricing.Call},
		{Spot: 105, Strike: 100, Rate: 0.05, TimeToExpiry: 1, Volatility: 0, Type: pricing.Call},
	}
	for _, in := range cases {
		rep, err := Run(in, oracle.Gonum(), DefaultTolerance)
		require.NoError(t, err, "inputs %+v", in)
		require.Len(t, rep.Fields, 6)
		assert.True(t, rep.OK(), "mismatches for %+v: %+v", in, rep.Mismatches())
		for _, f := range rep.Fields {
			assert.Less(t, f.AbsDiff, 1e-9, "field %s drifted for %+v", f.Field, in)
		}
	}
}

func TestMismatchIsFlaggedNotFatal(t *testing.T) {
	in := pricing.MarketInputs{Spot: 100, Strike: 100, Rate: 0.05, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Call}

	skewed := oracle.Func{
		Label: "skewed",
		Fn: func(in pricing.MarketInputs) (pricing.Valuation, error) {
			v, err := pricing.Evaluate(in)
			v.Price += 1 // push the price field outside any sane tolerance
			return v, err
		},
	}

	rep, err := Run(in, skewed, DefaultTolerance)
	require.NoError(t, err, "a mismatch must not surface as an error")
	assert.False(t, rep.OK())

	mismatches := rep.Mismatches()
	require.Len(t, mismatches, 1)
	assert.Equal(t, "price", mismatches[0].Field)
	assert.InDelta(t, 1.0, mismatches[0].AbsDiff, 1e-9)

	// The engine value stays authoritative.
	assert.InDelta(t, 10.450583572185565, rep.Engine.Price, 1e-9)
}

func TestInvalidInputAbortsBeforeEvaluation(t *testing.T) {
	in := pricing.MarketInputs{Spot: -1, Strike: 100, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Call}

	called := false
	probe := oracle.Func{
		Label: "probe",
		Fn: func(pricing.MarketInputs) (pricing.Valuation, error) {
			called = true
			return pricing.Valuation{}, nil
		},
	}

	rep, err := Run(in, probe, DefaultTolerance)
	require.ErrorIs(t, err, pricing.ErrInvalidInput)
	assert.Nil(t, rep)
	assert.False(t, called, "oracle must not run on invalid inputs")
}

func TestOracleErrorPropagates(t *testing.T) {
	in := pricing.MarketInputs{Spot: 100, Strike: 100, Rate: 0.05, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Call}
	broken := oracle.Func{
		Label: "broken",
		Fn: func(pricing.MarketInputs) (pricing.Valuation, error) {
			return pricing.Valuation{}, errors.New("backend gone")
		},
	}
	rep, err := Run(in, broken, DefaultTolerance)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.Contains(t, err.Error(), "broken")
}

func TestZeroToleranceFallsBackToDefault(t *testing.T) {
	in := pricing.MarketInputs{Spot: 100, Strike: 100, Rate: 0.05, TimeToExpiry: 1, Volatility: 0.2, Type: pricing.Call}
	rep, err := Run(in, oracle.Gonum(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTolerance, rep.Tolerance)
}

func TestRelDiffScaling(t *testing.T) {
	d := diff("price", 2.0, 1.0, 1e-4)
	assert.Equal(t, 1.0, d.AbsDiff)
	assert.Equal(t, 0.5, d.RelDiff)
	assert.False(t, d.Within)

	zero := diff("gamma", 0, 0, 1e-4)
	assert.Equal(t, 0.0, zero.RelDiff)
	assert.True(t, zero.Within)
}
