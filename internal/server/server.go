// Package server runs one bridge behind the local HTTP transport. Every
// entrypoint builds on it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/arko-chat/flurrybridge/internal/bridge"
	"github.com/arko-chat/flurrybridge/internal/config"
	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/handlers"
	"github.com/arko-chat/flurrybridge/internal/metrics"
	"github.com/arko-chat/flurrybridge/internal/router"
	"github.com/arko-chat/flurrybridge/internal/session"
	"github.com/arko-chat/flurrybridge/internal/storage"
	"github.com/arko-chat/flurrybridge/internal/ws"
)

const tokenDir = "tokens"

type Options struct {
	Config *config.Config
	SDK    flurry.SDK
	Logger *slog.Logger
	// Bridge is appended to the options derived from Config.
	Bridge []bridge.Option
}

type Server struct {
	Plugin   *bridge.Plugin
	Sessions *session.Store
	Metrics  *metrics.Metrics

	http     *http.Server
	listener net.Listener
	tokens   *storage.BadgerStore
	logger   *slog.Logger
}

// New attaches a bridge to opts.SDK and binds the listener, so URL is
// known before Serve is called.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	logger := opts.Logger

	tokens, err := storage.OpenBadger(filepath.Join(cfg.DataDir, tokenDir), logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	bopts := append([]bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithTokenStore(tokens),
		bridge.WithDecisionTimeout(cfg.DecisionTimeout()),
		bridge.WithMetrics(m),
	}, opts.Bridge...)

	plugin, err := bridge.Attach(opts.SDK, bopts...)
	if err != nil {
		tokens.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		plugin.Detach()
		tokens.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	sessions := session.NewStore(cfg.HashKey, cfg.BlockKey, session.WithVerifyTTL(cfg.CacheTTL()))
	h := handlers.New(plugin, ws.NewHub(logger.With("component", "ws")), logger)
	mux := router.New(h, sessions, router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m,
		Logger:         logger,
	})

	return &Server{
		Plugin:   plugin,
		Sessions: sessions,
		Metrics:  m,
		http:     &http.Server{Handler: mux},
		listener: listener,
		tokens:   tokens,
		logger:   logger,
	}, nil
}

// URL is the base address the server listens on.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// HarnessURL issues a token for host and returns the harness address
// that carries it.
func (s *Server) HarnessURL(host string) (string, error) {
	token, err := s.Sessions.Issue(host)
	if err != nil {
		return "", err
	}
	return s.URL() + "/?" + session.QueryParam + "=" + url.QueryEscape(token), nil
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	s.logger.Info("server starting", "addr", s.URL())
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, detaches the bridge and closes the
// token store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = errors.Join(err, cerr)
	}
	s.Plugin.Detach()
	if cerr := s.tokens.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}
