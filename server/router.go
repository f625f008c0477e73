package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mynextid/zk-passport/server/api"
)

// NewRouter mounts the API of server with the standard middleware chain
func NewRouter(server *api.Server, cfg *ServeConfig, logger Logger) *chi.Mux {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.WriteTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestSize))

	// CORS middleware
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Compression
	r.Use(middleware.Compress(5))

	// Health and catalogue
	r.Get("/health", server.HandleHealth)
	r.Get("/algorithms", server.HandleListAlgorithms)

	// Documents
	r.Post("/certificates/parse", server.HandleParseCertificate)
	r.Post("/commitments", server.HandleCommitment)
	r.Post("/nullifiers", server.HandleNullifier)

	// Commitment registry
	r.Get("/registry", server.HandleRegistry)
	r.Post("/registry/commitments", server.HandleInsertCommitments)
	r.Get("/registry/proof/{commitment}", server.HandleRegistryProof)

	// Watchlist
	r.Get("/watchlist", server.HandleWatchlist)
	r.Post("/watchlist/{level}/prove", server.HandleWatchlistProve)

	// Circuit inputs
	r.Post("/inputs/register", server.HandleRegisterInputs)
	r.Post("/inputs/disclose", server.HandleDiscloseInputs)
	r.Post("/reveal/unpack", server.HandleUnpackReveal)

	// Pprof (debug only)
	if cfg.EnablePprof {
		r.Mount("/debug", middleware.Profiler())
	}

	return r
}
