package api

import (
	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/inputs"
	"github.com/mynextid/zk-passport/registry"
	"github.com/mynextid/zk-passport/watchlist"
)

// Options are the long lived dependencies of the handlers
type Options struct {
	Registry *registry.Tree
	// Watchlist is optional; watchlist endpoints answer 503 without it
	Watchlist    *watchlist.Watchlist
	CSCAs        *certificate.Store
	RevealLayout inputs.RevealLayout
	Majority     int
}

// Server handles HTTP requests for passport witness operations
type Server struct {
	registry  *registry.Tree
	watchlist *watchlist.Watchlist
	cscas     *certificate.Store
	reveal    inputs.RevealLayout
	majority  int
}

// NewServer creates a new HTTP server
func NewServer(opts Options) *Server {
	s := &Server{
		registry:  opts.Registry,
		watchlist: opts.Watchlist,
		cscas:     opts.CSCAs,
		reveal:    opts.RevealLayout,
		majority:  opts.Majority,
	}
	if s.registry == nil {
		s.registry = registry.New(registry.DefaultMaxDepth)
	}
	if s.cscas == nil {
		s.cscas = certificate.NewStore()
	}
	if s.reveal == nil {
		s.reveal = inputs.RevealV2
	}
	return s
}

// Registry returns the commitment tree served by s
func (s *Server) Registry() *registry.Tree {
	return s.registry
}
