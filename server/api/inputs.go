package api

import (
	"math/big"
	"net/http"
	"time"

	"github.com/iden3/go-rapidsnark/types"

	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/inputs"
)

// InputsResponse carries circuit inputs ready for the prover
type InputsResponse struct {
	Circuit string               `json:"circuit"`
	Inputs  inputs.CircuitInputs `json:"inputs"`
}

// DiscloseRequest selects what a disclose proof reveals
type DiscloseRequest struct {
	PassportRequest
	Reveal             []string `json:"reveal,omitempty"`
	Majority           *int     `json:"majority,omitempty"`
	Scope              string   `json:"scope,omitempty"`
	UserIdentifier     string   `json:"user_identifier,omitempty"`
	CurrentDate        string   `json:"current_date,omitempty"`
	ForbiddenCountries []string `json:"forbidden_countries,omitempty"`
	OFAC               bool     `json:"ofac,omitempty"`
}

// DiscloseResponse adds the outputs the circuit is expected to produce
type DiscloseResponse struct {
	InputsResponse
	Nullifier field.Decimal `json:"nullifier"`
	Revealed  []string      `json:"revealed_data_packed"`
}

// UnpackRequest gives revealed outputs directly or inside a circom proof
type UnpackRequest struct {
	Signals  []string           `json:"signals,omitempty"`
	Proof    *types.ZKProof     `json:"proof,omitempty"`
	Offset   int                `json:"offset,omitempty"`
	Layout   string             `json:"layout,omitempty"`
	Expected *inputs.Attributes `json:"expected,omitempty"`
}

// UnpackResponse is the decoded disclosure
type UnpackResponse struct {
	Attributes *inputs.Attributes `json:"attributes"`
	Mismatches []inputs.Mismatch  `json:"mismatches,omitempty"`
	Valid      bool               `json:"valid"`
}

func optionalSecret(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	return parseSecret(s)
}

// HandleRegisterInputs builds the register circuit inputs of a passport
func (s *Server) HandleRegisterInputs(w http.ResponseWriter, r *http.Request) {
	var req PassportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	secret, err := optionalSecret(req.Secret)
	if err != nil {
		respondErr(w, err)
		return
	}
	salt, err := optionalSecret(req.Salt)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.loadPassport(req.Passport); err != nil {
		respondErr(w, err)
		return
	}

	reg, err := inputs.GenerateRegisterInputs(req.Passport, secret, salt)
	if err != nil {
		respondErr(w, err)
		return
	}
	c, err := reg.CircuitInputs()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, InputsResponse{Circuit: reg.Circuit, Inputs: c})
}

// HandleDiscloseInputs builds the disclose circuit inputs of a registered
// passport
func (s *Server) HandleDiscloseInputs(w http.ResponseWriter, r *http.Request) {
	var req DiscloseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	secret, err := parseSecret(req.Secret)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.loadPassport(req.Passport); err != nil {
		respondErr(w, err)
		return
	}

	opts := inputs.DiscloseOptions{
		Passport:           req.Passport,
		Secret:             secret,
		AttestationID:      req.AttestationID,
		Registry:           s.registry,
		Reveal:             req.Reveal,
		Majority:           s.majority,
		ForbiddenCountries: req.ForbiddenCountries,
	}
	if req.Majority != nil {
		opts.Majority = *req.Majority
	}
	if req.OFAC {
		if !s.requireWatchlist(w) {
			return
		}
		opts.Watchlist = s.watchlist
	}
	if req.Scope != "" {
		if opts.Scope, err = parseScope(req.Scope); err != nil {
			respondErr(w, err)
			return
		}
	}
	if req.UserIdentifier != "" {
		if opts.UserIdentifier, err = commitment.ParseUserIdentifier(req.UserIdentifier); err != nil {
			respondErr(w, err)
			return
		}
	}
	if req.CurrentDate != "" {
		if opts.CurrentDate, err = time.Parse("060102", req.CurrentDate); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_input", "current_date must be YYMMDD")
			return
		}
	}

	d, err := inputs.GenerateDiscloseInputs(r.Context(), opts)
	if err != nil {
		respondErr(w, err)
		return
	}
	c, err := d.CircuitInputs()
	if err != nil {
		respondErr(w, err)
		return
	}
	nullifier, err := d.Nullifier()
	if err != nil {
		respondErr(w, err)
		return
	}
	revealed, err := d.Revealed(s.reveal)
	if err != nil {
		respondErr(w, err)
		return
	}
	packed, err := inputs.PackReveal(revealed, s.reveal)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DiscloseResponse{
		InputsResponse: InputsResponse{Circuit: d.Circuit, Inputs: c},
		Nullifier:      field.NewDecimal(nullifier),
		Revealed:       packed,
	})
}

// HandleUnpackReveal decodes revealed outputs and optionally compares them
// with expected attributes
func (s *Server) HandleUnpackReveal(w http.ResponseWriter, r *http.Request) {
	var req UnpackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	layout := s.reveal
	if req.Layout != "" {
		l, err := inputs.ParseRevealLayout(req.Layout)
		if err != nil {
			respondErr(w, err)
			return
		}
		layout = l
	}

	var (
		revealed []byte
		err      error
	)
	switch {
	case req.Proof != nil:
		revealed, err = inputs.UnpackRevealFromProof(req.Proof, req.Offset, layout)
	case len(req.Signals) > 0:
		revealed, err = inputs.UnpackReveal(req.Signals, layout)
	default:
		respondError(w, http.StatusBadRequest, "missing_input", "signals or proof is required")
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}

	attrs, err := inputs.ExtractAttributes(revealed)
	if err != nil {
		respondErr(w, err)
		return
	}
	resp := UnpackResponse{Attributes: attrs, Valid: true}
	if req.Expected != nil {
		resp.Mismatches = attrs.Compare(req.Expected)
		resp.Valid = len(resp.Mismatches) == 0
	}
	respondJSON(w, http.StatusOK, resp)
}
