package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"farmverse/internal/checkout"
	"farmverse/internal/client"
	"farmverse/internal/identity"
	"farmverse/internal/persistence"
	"farmverse/internal/store"
	"farmverse/pkg/config"
	"farmverse/pkg/logger"
)

// env is everything one command invocation needs. It is built before the
// command runs and released after.
type env struct {
	cfg      *config.Config
	log      *logger.Logger
	storage  persistence.Storage
	api      *client.Client
	store    *store.Store
	provider identity.Provider
	session  *identity.Session
	checkout *checkout.Service
	closers  []func() error
}

type restorer interface {
	Restore(*identity.Session)
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg: cfg,
		log: newCLILogger(cfg),
		api: client.New(cfg.Client.APIURL),
	}

	if cfg.Client.RedisURL != "" {
		rs, err := persistence.OpenRedis(ctx, cfg.Client.RedisURL, "farmverse:")
		if err != nil {
			return nil, err
		}
		e.storage = rs
		e.closers = append(e.closers, rs.Close)
	} else {
		e.storage = persistence.NewFileStorage(cfg.Client.StateFile)
	}

	e.session, err = identity.LoadSession(ctx, e.storage)
	if err != nil {
		e.log.Warn().Err(err).Msg("ignoring unreadable saved session")
		e.session = nil
	}
	expired := e.session != nil && e.session.Expired(time.Now())
	if expired {
		e.log.Info().Msg("saved session expired, signing out")
		e.session = nil
		_ = identity.SaveSession(ctx, e.storage, nil)
	}

	publisher := e.api
	if e.session != nil {
		publisher = e.api.WithToken(e.session.AccessToken)
	}
	e.store = store.New(store.Options{
		Storage:   e.storage,
		Catalog:   e.api,
		Publisher: publisher,
		Logger:    e.log.Component("store"),
	})
	if err := e.store.Hydrate(ctx); err != nil {
		e.log.Warn().Err(err).Msg("starting from a fresh client state")
	}
	if expired {
		e.store.Logout()
	}

	e.provider, err = newProvider(cfg, e.api)
	if err != nil {
		e.close()
		return nil, err
	}
	if r, ok := e.provider.(restorer); ok && e.session != nil {
		r.Restore(e.session)
	}
	identity.Bind(e.provider, e.store)
	e.provider.OnSessionChange(func(s *identity.Session) {
		e.session = s
		if err := identity.SaveSession(context.Background(), e.storage, s); err != nil {
			e.log.Warn().Err(err).Msg("failed to save session")
		}
	})

	e.checkout = checkout.NewService(e.store, e.api, e.log.Component("checkout"))
	return e, nil
}

// newCLILogger keeps stdout for command output: logs always go to stderr.
func newCLILogger(cfg *config.Config) *logger.Logger {
	if cfg.App.Env == "development" {
		return logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("cli")
	}
	return logger.NewWithWriter(os.Stderr, cfg.App.LogLevel).Component("cli")
}

func newProvider(cfg *config.Config, api *client.Client) (identity.Provider, error) {
	switch cfg.Client.Provider {
	case "", "backend":
		return identity.NewBackendProvider(api), nil
	case "supabase":
		if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
			return nil, errors.New("supabase provider needs SUPABASE_URL and SUPABASE_ANON_KEY")
		}
		return identity.NewSupabaseProvider(cfg.Supabase.URL, cfg.Supabase.AnonKey), nil
	default:
		return nil, fmt.Errorf("unknown FARMVERSE_AUTH_PROVIDER %q", cfg.Client.Provider)
	}
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn().Err(err).Msg("error releasing resources")
		}
	}
}
