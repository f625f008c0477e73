package api

import (
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/passport"
)

// CertificateRequest carries a PEM (or base64 DER in a PEM block) certificate
type CertificateRequest struct {
	PEM string `json:"pem"`
}

// PublicKeyInfo is the circuit relevant part of a public key
type PublicKeyInfo struct {
	Family   string        `json:"family"`
	Bits     int           `json:"bits"`
	Modulus  string        `json:"modulus,omitempty"`
	Exponent int           `json:"exponent,omitempty"`
	Curve    string        `json:"curve,omitempty"`
	X        string        `json:"x,omitempty"`
	Y        string        `json:"y,omitempty"`
	Hash     field.Decimal `json:"hash"`
}

// CertificateResponse summarizes a parsed certificate
type CertificateResponse struct {
	SerialNumber       string        `json:"serial_number"`
	Issuer             string        `json:"issuer"`
	Subject            string        `json:"subject"`
	NotBefore          time.Time     `json:"not_before"`
	NotAfter           time.Time     `json:"not_after"`
	SignatureAlgorithm string        `json:"signature_algorithm"`
	Algorithm          string        `json:"algorithm"`
	Supported          bool          `json:"supported"`
	PublicKey          PublicKeyInfo `json:"public_key"`
	SubjectKeyID       string        `json:"subject_key_id,omitempty"`
	AuthorityKeyID     string        `json:"authority_key_id,omitempty"`
}

// CommitmentResponse is the registered commitment of a passport
type CommitmentResponse struct {
	Commitment        field.Decimal `json:"commitment"`
	DG1Hash           field.Decimal `json:"dg1_hash"`
	EContentHash      field.Decimal `json:"eContent_hash"`
	DSCPubKeyHash     field.Decimal `json:"pubKey_dsc_hash"`
	CSCAPubKeyHash    field.Decimal `json:"pubKey_csca_hash"`
	Algorithm         string        `json:"algorithm"`
	SignatureVerified bool          `json:"signature_verified"`
	AttestationID     int           `json:"attestation_id"`
}

// NullifierRequest carries a secret and an application scope. Scope is a
// decimal field element or a short string.
type NullifierRequest struct {
	Secret string `json:"secret"`
	Scope  string `json:"scope"`
}

// NullifierResponse is the nullifier of a secret within a scope
type NullifierResponse struct {
	Nullifier field.Decimal `json:"nullifier"`
	Scope     field.Decimal `json:"scope"`
}

func publicKeyInfo(pub certificate.PublicKey) (PublicKeyInfo, error) {
	info := PublicKeyInfo{Family: pub.Family().String(), Bits: pub.Bits()}
	switch k := pub.(type) {
	case *certificate.RSAPublicKey:
		info.Modulus, info.Exponent = k.Modulus.Text(16), k.Exponent
	case *certificate.RSAPSSPublicKey:
		info.Modulus, info.Exponent = k.Modulus.Text(16), k.Exponent
	case *certificate.ECDSAPublicKey:
		info.Curve, info.X, info.Y = k.Curve.Name, k.X.Text(16), k.Y.Text(16)
	}
	h, err := commitment.PubKeyHash(pub)
	if err != nil {
		return info, err
	}
	info.Hash = field.NewDecimal(h)
	return info, nil
}

// HandleParseCertificate parses a DSC or CSCA certificate
func (s *Server) HandleParseCertificate(w http.ResponseWriter, r *http.Request) {
	var req CertificateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PEM == "" {
		respondError(w, http.StatusBadRequest, "missing_input", "pem is required")
		return
	}

	cert, err := certificate.Parse([]byte(req.PEM))
	if err != nil {
		respondErr(w, err)
		return
	}
	pub, err := publicKeyInfo(cert.PublicKey)
	if err != nil {
		respondErr(w, err)
		return
	}
	alg := cert.Algorithm()
	respondJSON(w, http.StatusOK, CertificateResponse{
		SerialNumber:       cert.SerialNumber.String(),
		Issuer:             cert.Issuer.String(),
		Subject:            cert.Subject.String(),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		Algorithm:          alg.String(),
		Supported:          certificate.Supported(alg),
		PublicKey:          pub,
		SubjectKeyID:       cert.SubjectKeyID,
		AuthorityKeyID:     cert.AuthorityKeyID,
	})
}

func parseSecret(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("secret is required")
	}
	v, err := field.ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, field.Check(v)
}

// HandleCommitment computes the commitment of a passport
func (s *Server) HandleCommitment(w http.ResponseWriter, r *http.Request) {
	var req PassportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	secret, err := parseSecret(req.Secret)
	if err != nil {
		respondErr(w, err)
		return
	}
	if req.AttestationID == 0 {
		req.AttestationID = passport.AttestationPassport
	}
	if err := s.loadPassport(req.Passport); err != nil {
		respondErr(w, err)
		return
	}

	comps, err := commitment.ComputeComponents(req.Passport)
	if err != nil {
		respondErr(w, err)
		return
	}
	c, err := comps.Commit(secret, req.AttestationID)
	if err != nil {
		respondErr(w, err)
		return
	}
	meta, _ := req.Passport.Metadata()
	respondJSON(w, http.StatusOK, CommitmentResponse{
		Commitment:        field.NewDecimal(c),
		DG1Hash:           field.NewDecimal(comps.DG1Hash),
		EContentHash:      field.NewDecimal(comps.EContentHash),
		DSCPubKeyHash:     field.NewDecimal(comps.DSCPubKeyHash),
		CSCAPubKeyHash:    field.NewDecimal(comps.CSCAPubKeyHash),
		Algorithm:         meta.SignatureAlgorithm.String(),
		SignatureVerified: meta.SignatureVerified,
		AttestationID:     req.AttestationID,
	})
}

// parseScope accepts a decimal field element or a short string
func parseScope(s string) (*big.Int, error) {
	if v, err := field.ParseDecimal(s); err == nil {
		return v, field.Check(v)
	}
	return commitment.ScopeFromString(s)
}

// HandleNullifier computes the nullifier of a secret within a scope
func (s *Server) HandleNullifier(w http.ResponseWriter, r *http.Request) {
	var req NullifierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	secret, err := parseSecret(req.Secret)
	if err != nil {
		respondErr(w, err)
		return
	}
	scope, err := parseScope(req.Scope)
	if err != nil {
		respondErr(w, err)
		return
	}
	n, err := commitment.GenerateNullifier(secret, scope)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, NullifierResponse{
		Nullifier: field.NewDecimal(n),
		Scope:     field.NewDecimal(scope),
	})
}
