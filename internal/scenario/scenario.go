// Package scenario turns user-facing option descriptions into engine
// inputs.
//
// Responsibilities:
//   - Hold the explicit input structure with documented defaults
//   - Convert calendar-day expiries to year fractions at the boundary
//   - Load scenario batches from JSON or YAML files
//   - Resolve strike rules (ABS, ATM offsets, DELTA targets, expressions)
//
// Design notes:
//   - Everything downstream of MarketInputs works in year fractions;
//     calendar days exist only in this package and the transport layers
//   - Loading fills per-scenario defaults (type, label) but never guesses
//     market values
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/contactkeval/option-pricer/internal/pricing"
)

// Scenario describes one option to value. Rate and Volatility are
// annualized decimals, TimeDays counts calendar days to expiry, and Type
// accepts call/c or put/p. The strike may be a number or a StrikeRule; a
// rule wins when both are set.
type Scenario struct {
	Label      string  `json:"label,omitempty" yaml:"label,omitempty"`
	Spot       float64 `json:"spot" yaml:"spot"`
	Strike     float64 `json:"strike,omitempty" yaml:"strike,omitempty"`
	StrikeRule string  `json:"strike_rule,omitempty" yaml:"strike_rule,omitempty"`
	Rate       float64 `json:"rate" yaml:"rate"`
	TimeDays   float64 `json:"time_days" yaml:"time_days"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Type       string  `json:"type" yaml:"type"`
}

// Defaults is the worked example the CLI ships with: a 30-day call on a
// $34.03 underlying struck at $40, 35% vol, 4.12% rate. Worth a few
// cents.
func Defaults() Scenario {
	return Scenario{
		Label:      "example",
		Spot:       34.03,
		Strike:     40.00,
		Rate:       0.0412,
		TimeDays:   30,
		Volatility: 0.35,
		Type:       "call",
	}
}

// MarketInputs converts the scenario to engine inputs. Calendar days
// become the year fraction here; nothing downstream sees days.
func (s Scenario) MarketInputs() (pricing.MarketInputs, error) {
	typ, err := pricing.ParseOptionType(s.Type)
	if err != nil {
		return pricing.MarketInputs{}, err
	}

	strike := s.Strike
	if s.StrikeRule != "" {
		strike, err = ResolveStrike(s.StrikeRule, s)
		if err != nil {
			return pricing.MarketInputs{}, err
		}
	}

	in := pricing.MarketInputs{
		Spot:         s.Spot,
		Strike:       strike,
		Rate:         s.Rate,
		TimeToExpiry: s.TimeDays / pricing.DaysPerYear,
		Volatility:   s.Volatility,
		Type:         typ,
	}
	if err := in.Validate(); err != nil {
		return pricing.MarketInputs{}, err
	}
	return in, nil
}

// Batch is a file-loadable set of scenarios plus run settings: Tolerance
// is the absolute oracle agreement (0 picks the default), PerDay switches
// reports to theta-per-day and vega/rho-per-percent, Workers caps
// parallel evaluations (<=1 runs sequentially), Verify defaults to on
// when omitted, and Verbosity ranges 0=errors to 3=trace.
type Batch struct {
	Tolerance float64    `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	PerDay    bool       `json:"per_day,omitempty" yaml:"per_day,omitempty"`
	Workers   int        `json:"workers,omitempty" yaml:"workers,omitempty"`
	Verify    *bool      `json:"verify,omitempty" yaml:"verify,omitempty"`
	ReportDir string     `json:"report_dir,omitempty" yaml:"report_dir,omitempty"`
	Verbosity int        `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios"`
}

// VerifyEnabled reports whether the batch asks for the oracle
// cross-check. Verification defaults to on.
func (b *Batch) VerifyEnabled() bool {
	return b.Verify == nil || *b.Verify
}

// Load reads a batch from path. The format follows the extension: .yaml
// and .yml parse as YAML, anything else as JSON.
func Load(path string) (*Batch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios: %w", err)
	}

	var b Batch
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &b)
	default:
		err = json.Unmarshal(raw, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(b.Scenarios) == 0 {
		return nil, fmt.Errorf("%s: no scenarios", path)
	}

	for i := range b.Scenarios {
		if b.Scenarios[i].Type == "" {
			b.Scenarios[i].Type = string(pricing.Call)
		}
		if b.Scenarios[i].Label == "" {
			b.Scenarios[i].Label = fmt.Sprintf("scenario-%d", i+1)
		}
	}
	return &b, nil
}
