package api

import (
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/logger"
	"github.com/mynextid/zk-passport/registry"
)

// RegistryResponse describes the commitment tree
type RegistryResponse struct {
	Root     field.Decimal `json:"root"`
	RootHex  string        `json:"root_hex"`
	Size     int           `json:"size"`
	Depth    int           `json:"depth"`
	MaxDepth int           `json:"max_depth"`
}

// InsertRequest carries commitments to append
type InsertRequest struct {
	Commitments []field.Decimal `json:"commitments"`
}

// InsertResponse reports the tree after insertion
type InsertResponse struct {
	Inserted int              `json:"inserted"`
	Registry RegistryResponse `json:"registry"`
}

// ProofResponse is a registry inclusion proof padded to the tree depth
type ProofResponse struct {
	Commitment field.Decimal   `json:"commitment"`
	Index      int             `json:"index"`
	Root       field.Decimal   `json:"merkle_root"`
	LeafDepth  int             `json:"leaf_depth"`
	Path       []int           `json:"path"`
	Siblings   []field.Decimal `json:"siblings"`
}

func (s *Server) registryInfo() RegistryResponse {
	return RegistryResponse{
		Root:     field.NewDecimal(s.registry.Root()),
		RootHex:  s.registry.RootHex(),
		Size:     s.registry.Size(),
		Depth:    s.registry.Depth(),
		MaxDepth: s.registry.MaxDepth(),
	}
}

// HandleRegistry describes the commitment tree
func (s *Server) HandleRegistry(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.registryInfo())
}

// HandleInsertCommitments appends commitments to the tree
func (s *Server) HandleInsertCommitments(w http.ResponseWriter, r *http.Request) {
	var req InsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Commitments) == 0 {
		respondError(w, http.StatusBadRequest, "missing_input", "commitments are required")
		return
	}
	leaves := make([]*big.Int, len(req.Commitments))
	for i, c := range req.Commitments {
		leaves[i] = c.Value()
	}

	if err := s.registry.InsertMany(r.Context(), leaves); err != nil {
		respondErr(w, err)
		return
	}
	logger.Logger().Info().Int("inserted", len(leaves)).Int("size", s.registry.Size()).Msg("commitments registered")
	respondJSON(w, http.StatusCreated, InsertResponse{
		Inserted: len(leaves),
		Registry: s.registryInfo(),
	})
}

// HandleRegistryProof returns the inclusion proof of a commitment given in
// decimal or 0x hex form
func (s *Server) HandleRegistryProof(w http.ResponseWriter, r *http.Request) {
	index, err := s.registry.IndexOfString(chi.URLParam(r, "commitment"))
	if err != nil {
		respondErr(w, err)
		return
	}
	proof, err := s.registry.GenerateProof(index)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, proofResponse(index, proof, s.registry.MaxDepth()))
}

func proofResponse(index int, p *registry.Proof, depth int) ProofResponse {
	siblings, path, err := p.Padded(depth)
	if err != nil {
		// proofs of the tree never exceed its max depth
		siblings, path = p.Siblings, p.Path()
	}
	return ProofResponse{
		Commitment: field.NewDecimal(p.Leaf),
		Index:      index,
		Root:       field.NewDecimal(p.Root),
		LeafDepth:  p.Depth(),
		Path:       path,
		Siblings:   decimals(siblings),
	}
}

func decimals(values []*big.Int) []field.Decimal {
	out := make([]field.Decimal, len(values))
	for i, v := range values {
		out[i] = field.NewDecimal(v)
	}
	return out
}
