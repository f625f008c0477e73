package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/watchlist"
)

// WatchlistResponse lists the root of every level
type WatchlistResponse struct {
	Depth int                      `json:"depth"`
	Roots map[string]field.Decimal `json:"roots"`
}

// WatchlistProveRequest gives either an MRZ or a precomputed key
type WatchlistProveRequest struct {
	MRZ string        `json:"mrz,omitempty"`
	Key field.Decimal `json:"key,omitempty"`
}

// WatchlistProofResponse is a padded watchlist proof
type WatchlistProofResponse struct {
	Level      string          `json:"level"`
	Root       field.Decimal   `json:"smt_root"`
	Key        field.Decimal   `json:"key"`
	ClosestKey field.Decimal   `json:"smt_leaf_key"`
	Siblings   []field.Decimal `json:"smt_siblings"`
	Member     bool            `json:"member"`
}

func (s *Server) requireWatchlist(w http.ResponseWriter) bool {
	if s.watchlist == nil {
		respondError(w, http.StatusServiceUnavailable, "watchlist_not_loaded", "no watchlist is configured")
		return false
	}
	return true
}

// HandleWatchlist lists the watchlist roots
func (s *Server) HandleWatchlist(w http.ResponseWriter, r *http.Request) {
	if !s.requireWatchlist(w) {
		return
	}
	roots := make(map[string]field.Decimal)
	for l, root := range s.watchlist.Roots() {
		roots[l.String()] = field.NewDecimal(root)
	}
	respondJSON(w, http.StatusOK, WatchlistResponse{Depth: s.watchlist.Depth(), Roots: roots})
}

// HandleWatchlistProve proves membership or absence of a key at a level
func (s *Server) HandleWatchlistProve(w http.ResponseWriter, r *http.Request) {
	if !s.requireWatchlist(w) {
		return
	}
	level, err := watchlist.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		respondErr(w, err)
		return
	}
	var req WatchlistProveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var proof *watchlist.Proof
	switch {
	case req.MRZ != "":
		proof, err = s.watchlist.ProveMRZ(r.Context(), level, req.MRZ)
	case req.Key.Int != nil:
		proof, err = s.watchlist.Prove(r.Context(), level, req.Key.Int)
	default:
		respondError(w, http.StatusBadRequest, "missing_input", "mrz or key is required")
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, WatchlistProofResponse{
		Level:      level.String(),
		Root:       field.NewDecimal(proof.Root),
		Key:        field.NewDecimal(proof.Key),
		ClosestKey: field.NewDecimal(proof.ClosestKey),
		Siblings:   decimals(proof.Siblings),
		Member:     proof.Member,
	})
}
