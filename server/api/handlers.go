package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/passport"
)

// ==== Request/Response Types ====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AlgorithmInfo describes one circuit supported DSC algorithm
type AlgorithmInfo struct {
	Name       string `json:"name"`
	Family     string `json:"family"`
	Hash       string `json:"hash"`
	Bits       int    `json:"bits"`
	Exponent   int    `json:"exponent,omitempty"`
	SaltLength int    `json:"salt_length,omitempty"`
	Curve      string `json:"curve,omitempty"`
}

// AlgorithmListResponse represents the supported algorithms
type AlgorithmListResponse struct {
	Algorithms []AlgorithmInfo `json:"algorithms"`
	Count      int             `json:"count"`
}

// PassportRequest carries a passport and the caller's secrets
type PassportRequest struct {
	Passport      *passport.Passport `json:"passport"`
	Secret        string             `json:"secret,omitempty"`
	Salt          string             `json:"salt,omitempty"`
	AttestationID int                `json:"attestation_id,omitempty"`
}

// ==== Handlers ====

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// HandleListAlgorithms lists the DSC algorithms register circuits exist for
func (s *Server) HandleListAlgorithms(w http.ResponseWriter, r *http.Request) {
	algorithms := make([]AlgorithmInfo, 0, len(certificate.SupportedDSCAlgorithms))
	for a := range certificate.SupportedDSCAlgorithms {
		algorithms = append(algorithms, AlgorithmInfo{
			Name:       a.String(),
			Family:     a.Family.String(),
			Hash:       a.Hash.String(),
			Bits:       a.Bits,
			Exponent:   a.Exponent,
			SaltLength: a.SaltLength,
			Curve:      a.Curve,
		})
	}
	sort.Slice(algorithms, func(i, j int) bool { return algorithms[i].Name < algorithms[j].Name })

	respondJSON(w, http.StatusOK, AlgorithmListResponse{
		Algorithms: algorithms,
		Count:      len(algorithms),
	})
}

// ==== Helper Functions ====

// decodeJSON reads the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json",
			fmt.Sprintf("failed to parse request: %v", err))
		return false
	}
	return true
}

// loadPassport resolves the CSCA when missing and parses the passport
func (s *Server) loadPassport(p *passport.Passport) error {
	if p == nil {
		return fmt.Errorf("%w: passport is required", common.ErrMalformedCertificate)
	}
	if p.CSCA == nil && s.cscas.Len() > 0 {
		if err := p.ResolveCSCA(s.cscas); err != nil {
			return err
		}
	}
	return p.Parse()
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrCommitmentNotFound):
		return http.StatusNotFound, "commitment_not_found"
	case errors.Is(err, common.ErrCSCANotResolved):
		return http.StatusNotFound, "csca_not_found"
	case errors.Is(err, common.ErrUnsupportedSignatureAlgorithm):
		return http.StatusUnprocessableEntity, "unsupported_algorithm"
	case errors.Is(err, common.ErrMalformedCertificate),
		errors.Is(err, common.ErrHashLocationMismatch),
		errors.Is(err, common.ErrPaddingOverflow),
		errors.Is(err, common.ErrInvalidSignature):
		return http.StatusUnprocessableEntity, "malformed_document"
	case errors.Is(err, common.ErrTreeFull):
		return http.StatusConflict, "tree_full"
	default:
		return http.StatusBadRequest, "invalid_input"
	}
}

// respondErr writes the mapped error response of err
func respondErr(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	respondError(w, status, code, err.Error())
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
	})
}
