package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/config"
	"github.com/mynextid/zk-passport/registry"
	"github.com/mynextid/zk-passport/server/api"
	"github.com/mynextid/zk-passport/watchlist"
)

type ServeConfig struct {
	// Server settings
	Host string
	Port int

	// Domain settings file (registry, watchlist, CSCA bundle)
	ConfigPath string

	// Performance settings
	MaxRequestSize  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Security settings
	EnableCORS  bool
	CorsOrigins []string

	// Observability. Empty log settings fall back to the config file.
	EnablePprof bool
	LogLevel    string
	LogFormat   string // "json" or "text"

	// TLS settings
	EnableTLS bool
	CertFile  string
	KeyFile   string
}

func Run(cfg *ServeConfig) error {
	// Validate configuration
	if err := validateServeConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	conf, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = conf.Log.Level
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = conf.Log.Format
	}

	// Setup structured logging
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat)

	// Load registry, watchlist and CSCA store
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	opts, err := LoadOptions(ctx, conf, logger)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	// Create server
	server := api.NewServer(opts)

	// Setup router with middleware
	r := NewRouter(server, cfg, logger)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr, "tls", cfg.EnableTLS)

		var err error
		if cfg.EnableTLS {
			err = httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server gracefully...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if path := conf.Registry.SnapshotPath; path != "" {
		if err := server.Registry().SaveFile(path); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		logger.Info("Registry saved", "path", path, "size", server.Registry().Size())
	}

	logger.Info("Server stopped")
	return nil
}

// LoadOptions builds the handler dependencies described by conf. The
// registry comes from the local snapshot when present, else from the remote
// snapshot, else starts empty.
func LoadOptions(ctx context.Context, conf *config.Config, logger Logger) (api.Options, error) {
	opts := api.Options{
		CSCAs:        certificate.NewStore(),
		RevealLayout: conf.RevealLayout(),
		Majority:     conf.Inputs.Majority,
	}

	if path := conf.CSCA.BundlePath; path != "" {
		n, err := opts.CSCAs.LoadFile(path)
		if err != nil {
			return opts, fmt.Errorf("csca bundle: %w", err)
		}
		logger.Info("Loaded CSCA certificates", "path", path, "count", n)
	}

	var err error
	switch path := conf.Registry.SnapshotPath; {
	case path != "" && fileExists(path):
		opts.Registry, err = registry.LoadFile(ctx, path)
	case conf.Registry.SnapshotURL != "":
		opts.Registry, err = registry.FetchSnapshot(ctx, conf.Registry.SnapshotURL)
	default:
		opts.Registry = registry.New(conf.Registry.MaxDepth)
	}
	if err != nil {
		return opts, fmt.Errorf("registry: %w", err)
	}
	logger.Info("Registry ready", "size", opts.Registry.Size(), "root", opts.Registry.RootHex())

	if path := conf.Watchlist.SourcePath; path != "" {
		opts.Watchlist, err = watchlist.Build(ctx, watchlist.JSONFileSource{Path: path}, watchlist.Options{Depth: conf.Watchlist.Depth})
		if err != nil {
			return opts, fmt.Errorf("watchlist: %w", err)
		}
	} else {
		logger.Warn("No watchlist source configured, watchlist endpoints are disabled")
	}
	return opts, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func validateServeConfig(cfg *ServeConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	if cfg.EnableTLS {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert-file or key-file not provided")
		}
		if _, err := os.Stat(cfg.CertFile); err != nil {
			return fmt.Errorf("cert file not found: %s", cfg.CertFile)
		}
		if _, err := os.Stat(cfg.KeyFile); err != nil {
			return fmt.Errorf("key file not found: %s", cfg.KeyFile)
		}
	}

	return nil
}
