// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/mapmark/internal/api"
	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/authz"
	"github.com/tomtom215/mapmark/internal/config"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/feed"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/supervisor"
	"github.com/tomtom215/mapmark/internal/supervisor/services"
	ws "github.com/tomtom215/mapmark/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging.Logging())

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "token":
		err = runToken(cfg, args, os.Stdout)
	case "export":
		err = runExport(cfg, args, os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q (want serve, token or export)", cmd)
	}
	if err != nil {
		logging.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

// openStore opens the configured backend. The returned collector is nil
// for the memory backend.
func openStore(cfg *config.Config) (docstore.Store, *docstore.Collector, func(docstore.ChangeSink), error) {
	if cfg.Store.Backend == config.StoreBackendMemory {
		logging.Warn().Msg("Using in-memory document store; documents are lost on restart")
		return docstore.NewMemoryStore(), nil, nil, nil
	}
	bs, err := docstore.OpenBadger(cfg.Store.Badger())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open badger store: %w", err)
	}
	var collector *docstore.Collector
	if cfg.Store.GCInterval > 0 {
		collector = docstore.NewCollector(bs)
	}
	return bs, collector, bs.SetChangeSink, nil
}

func newAuthn(cfg *config.Config) (*auth.Middleware, error) {
	mode, err := auth.ParseAuthMode(cfg.Security.AuthMode)
	if err != nil {
		return nil, err
	}
	if mode == auth.AuthModeNone {
		return auth.NewMiddleware(mode, nil, cfg.Security.AnonymousRole), nil
	}
	mgr, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return nil, err
	}
	return auth.NewMiddleware(mode, mgr, ""), nil
}

//nolint:gocyclo // sequential startup
func serve(cfg *config.Config) error {
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store", cfg.Store.Backend).
		Str("feed", cfg.Feed.Transport()).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Mapmark server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, collector, setSink, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing document store")
		}
	}()

	changes, err := feed.New(cfg.Feed, logging.NewWatermillAdapter())
	if err != nil {
		return fmt.Errorf("start change feed: %w", err)
	}
	defer func() {
		if err := changes.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing change feed")
		}
	}()
	if setSink != nil {
		setSink(changes)
	}

	hub := ws.NewHub()
	bridge := ws.NewFeedBridge(hub, changes)

	authn, err := newAuthn(cfg)
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	enforcer, err := authz.NewEnforcer(ctx, cfg.Security.Enforcer())
	if err != nil {
		return fmt.Errorf("authorization: %w", err)
	}
	defer enforcer.Close()

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled

	router, err := api.NewRouter(api.Deps{
		Store:          store,
		Hub:            hub,
		Authn:          authn,
		Authz:          authz.NewMiddleware(enforcer),
		Middleware:     mwConfig,
		AllowedOrigins: cfg.Security.WebSocketOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Checks:         []api.HealthCheck{api.StoreCheck(store)},
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	if collector != nil {
		tree.AddStoreService(services.NewCollectorService(collector))
	}
	tree.AddRealtimeService(services.NewHubService(hub))
	tree.AddRealtimeService(services.NewFeedBridgeService(bridge))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	if unstopped, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	logging.Info().Msg("Mapmark server stopped")
	return nil
}
