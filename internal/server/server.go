// Package server exposes pricing and verification over HTTP.
//
// Endpoints:
//   - GET  /health         liveness probe
//   - POST /api/v1/price   evaluate one scenario
//   - POST /api/v1/verify  evaluate and cross-check against the oracle
//
// Bodies use the scenario schema, so strike rules work over the wire
// exactly as they do in batch files. Rejected inputs map to 400,
// everything else to 500. An oracle mismatch is a diagnostic in the
// response body, never an HTTP error.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/oracle"
	"github.com/contactkeval/option-pricer/internal/pricing"
	"github.com/contactkeval/option-pricer/internal/scenario"
	"github.com/contactkeval/option-pricer/internal/verify"
)

// Server holds the dependencies shared by all handlers.
type Server struct {
	oracle    oracle.Oracle
	tolerance float64
}

// New builds a Server verifying against o. A non-positive tolerance
// falls back to verify.DefaultTolerance.
func New(o oracle.Oracle, tolerance float64) *Server {
	if tolerance <= 0 {
		tolerance = verify.DefaultTolerance
	}
	return &Server{oracle: o, tolerance: tolerance}
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/v1/price", s.handlePrice).Methods("POST")
	r.HandleFunc("/api/v1/verify", s.handleVerify).Methods("POST")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type priceResponse struct {
	Label     string               `json:"label,omitempty"`
	Inputs    pricing.MarketInputs `json:"inputs"`
	Valuation pricing.Valuation    `json:"valuation"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	sc, in, ok := s.decodeScenario(w, r)
	if !ok {
		return
	}
	val, err := pricing.Evaluate(in)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Debugf("priced label=%q type=%s price=%g", sc.Label, in.Type, val.Price)
	writeJSON(w, http.StatusOK, priceResponse{Label: sc.Label, Inputs: in, Valuation: val})
}

type verifyResponse struct {
	Label string `json:"label,omitempty"`
	*verify.Report
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	sc, in, ok := s.decodeScenario(w, r)
	if !ok {
		return
	}

	tol := s.tolerance
	if q := r.URL.Query().Get("tolerance"); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil || v <= 0 {
			http.Error(w, fmt.Sprintf("invalid tolerance %q", q), http.StatusBadRequest)
			return
		}
		tol = v
	}

	rep, err := verify.Run(in, s.oracle, tol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Label: sc.Label, Report: rep})
}

// decodeScenario reads a scenario body and resolves it to market inputs,
// writing the error response itself on failure. Bodies carry every field
// they mean; nothing is defaulted here.
func (s *Server) decodeScenario(w http.ResponseWriter, r *http.Request) (scenario.Scenario, pricing.MarketInputs, bool) {
	var sc scenario.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return sc, pricing.MarketInputs{}, false
	}
	in, err := sc.MarketInputs()
	if err != nil {
		writeError(w, err)
		return sc, pricing.MarketInputs{}, false
	}
	return sc, in, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("response encoding failed: %v", err)
	}
}

// writeError maps domain errors onto statuses: rejected inputs and strike
// rules are the caller's fault, anything else is ours.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, pricing.ErrInvalidInput) || errors.Is(err, scenario.ErrInvalidStrikeRule) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
