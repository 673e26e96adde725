// Package server wires the HTTP surface: routes, middleware chains,
// TLS, and graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Davincible/llm-relay/internal/config"
	"github.com/Davincible/llm-relay/internal/failover"
	"github.com/Davincible/llm-relay/internal/handlers"
	"github.com/Davincible/llm-relay/internal/middleware"
	"github.com/Davincible/llm-relay/internal/tokencount"
	"github.com/Davincible/llm-relay/internal/upstream"
)

type Server struct {
	config  *config.Manager
	logger  *slog.Logger
	name    string
	version string

	server *http.Server
}

func New(configManager *config.Manager, logger *slog.Logger, name, version string) *Server {
	return &Server{
		config:  configManager,
		logger:  logger,
		name:    name,
		version: version,
	}
}

func (s *Server) Start() error {
	cfg := s.config.Get()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	mux, err := s.setupRoutes(cfg)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	if cfg.HTTPSEnabled {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return err
		}

		s.server.TLSConfig = tlsConfig
	}

	s.logger.Info("Starting server", "address", addr, "https", cfg.HTTPSEnabled)

	// Hot-reload the config while the server runs.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	go func() {
		if err := s.config.Watch(watchCtx, s.logger); err != nil && watchCtx.Err() == nil {
			s.logger.Error("Config watcher stopped", "error", err)
		}
	}()

	// Start server in goroutine
	go func() {
		var err error
		if cfg.HTTPSEnabled {
			err = s.server.ListenAndServeTLS(cfg.SSLCertFile, cfg.SSLKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")

	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes(cfg *config.Config) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	client := upstream.NewClient(time.Duration(cfg.RequestTimeout)*time.Second, s.logger)
	orchestrator := failover.New(client, s.logger)
	estimator := tokencount.NewEstimator(s.logger)

	relay := handlers.NewRelay(s.config, estimator, orchestrator, s.logger)

	middlewareSet := middleware.NewMiddlewareSet(s.config, s.logger)
	api := middlewareSet.APIChain()
	public := middlewareSet.PublicChain()

	mux.Handle("POST /v1/messages", api.Handler(handlers.NewMessagesHandler(relay)))
	mux.Handle("POST /v1/messages/count_tokens", api.Handler(handlers.NewCountTokensHandler(relay)))
	mux.Handle("POST /v1/chat/completions", api.Handler(handlers.NewChatHandler(relay)))

	mux.Handle("GET /health", public.Handler(handlers.NewHealthHandler(s.logger)))
	mux.Handle("GET /test-connection", public.Handler(handlers.NewTestConnectionHandler(relay)))
	mux.Handle("GET /metrics", public.Handler(promhttp.Handler()))

	// The root handler doubles as the JSON 404 for unknown routes.
	mux.Handle("/", public.Handler(handlers.NewRootHandler(relay, s.name, s.version)))

	return mux, nil
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.SSLCAFile != "" {
		caCert, err := os.ReadFile(cfg.SSLCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates parsed from %s", cfg.SSLCAFile)
		}

		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}
