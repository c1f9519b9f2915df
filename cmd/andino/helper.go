package main

import (
	"fmt"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/config"
	"github.com/lcastrov/andino/internal/memory"
	"github.com/lcastrov/andino/internal/model"
	"github.com/lcastrov/andino/internal/router"
	"github.com/lcastrov/andino/internal/upstream"
)

// core bundles the wired collaborators shared by the serve, chat and
// warmup commands.
type core struct {
	store    cache.Store
	sessions memory.Manager
	upstream upstream.Client
	router   *router.Router
}

func buildStore(cfg *config.Config) (cache.Store, error) {
	store, err := cache.NewRedisStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("configure cache store: %w", err)
	}
	return store, nil
}

func buildCore(cfg *config.Config) (*core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := model.New(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("configure model provider: %w", err)
	}

	upstreamTimeout, err := config.DurationOrDefault(cfg.Upstream.Timeout, config.DefaultUpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse upstream timeout: %w", err)
	}
	modelTimeout, err := config.DurationOrDefault(cfg.Model.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse model timeout: %w", err)
	}
	upstreamTTL, err := config.DurationOrDefault(cfg.Cache.UpstreamTTL, config.DefaultCacheUpstreamTTL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream cache TTL: %w", err)
	}
	sessionTTL, err := config.DurationOrDefault(cfg.Cache.SessionTTL, config.DefaultCacheSessionTTL)
	if err != nil {
		return nil, fmt.Errorf("parse session cache TTL: %w", err)
	}

	var sessions memory.Manager
	if cfg.Sessions.Persist {
		sessions = memory.NewSnapshotManager(store, sessionTTL)
	} else {
		sessions = memory.NewInProcessManager()
	}

	up := upstream.New(cfg.Upstream.BaseURL, upstreamTimeout)
	rt := router.New(provider, up, store, sessions, router.Config{
		ModelName:       cfg.Model.Name,
		ModelTimeout:    modelTimeout,
		UpstreamTTL:     upstreamTTL,
		HistoryLimit:    cfg.Sessions.HistoryLimit,
		ContextMessages: cfg.Router.ContextMessages,
		ReuseMessages:   cfg.Router.ReuseMessages,
	})

	return &core{store: store, sessions: sessions, upstream: up, router: rt}, nil
}
