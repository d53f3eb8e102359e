// Package app wires together the store, the rule engines, the session
// registries and the transport layer.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vladbarsukov/gameroom-server/internal/config"
	"github.com/vladbarsukov/gameroom-server/internal/game"
	"github.com/vladbarsukov/gameroom-server/internal/registry"
	"github.com/vladbarsukov/gameroom-server/internal/session"
	"github.com/vladbarsukov/gameroom-server/internal/store"
	"github.com/vladbarsukov/gameroom-server/internal/store/sqlite"
	"github.com/vladbarsukov/gameroom-server/internal/sueca"
	transporthttp "github.com/vladbarsukov/gameroom-server/internal/transport/http"
)

const saveTimeout = 5 * time.Second

// engineFactories maps the engine ids usable in configuration to
// their implementations.
var engineFactories = map[string]game.Factory{
	"sueca": func(params game.Params) (game.Engine, error) {
		return sueca.New(params)
	},
}

type gameService struct {
	*transporthttp.GameService
	factory game.Factory
}

// App ties the session engine to its transport and storage.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	services        map[string]*gameService
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	saver := func(rec *store.GameRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := st.SaveGame(ctx, rec); err != nil {
			logger.Error().Err(err).Str("game_id", rec.ID).Msg("failed to save game record")
		}
	}

	services := make(map[string]*gameService, len(cfg.Games))
	httpServices := make(map[string]*transporthttp.GameService, len(cfg.Games))
	for gameType, info := range cfg.Games {
		factory, ok := engineFactories[info.Engine]
		if !ok {
			st.Close()
			return nil, fmt.Errorf("game type %q: unknown engine %q", gameType, info.Engine)
		}

		gt := gameType
		reg := registry.New(func(id string, params game.Params) (*session.Session, error) {
			eng, err := factory(params)
			if err != nil {
				return nil, err
			}
			return session.New(id, gt, eng, logger, saver), nil
		})

		svc := &gameService{
			GameService: &transporthttp.GameService{
				Type:        gameType,
				DisplayName: info.DisplayName,
				Registry:    reg,
			},
			factory: factory,
		}
		services[gameType] = svc
		httpServices[gameType] = svc.GameService
	}

	return &App{
		server:          transporthttp.NewServer(httpServices, *cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		services:        services,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal error. Stored games are restored in the background so startup
// never blocks the acceptance of new sessions.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.restoreStoredGames(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// restoreStoredGames repopulates each registry from durable storage.
// A missing or corrupt record is logged and skipped, never fatal.
func (a *App) restoreStoredGames(ctx context.Context) {
	saver := func(rec *store.GameRecord) {
		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := a.store.SaveGame(saveCtx, rec); err != nil {
			a.log.Error().Err(err).Str("game_id", rec.ID).Msg("failed to save game record")
		}
	}

	for gameType, svc := range a.services {
		recs, err := a.store.ListGames(ctx, gameType)
		if err != nil {
			a.log.Error().Err(err).Str("game_type", gameType).Msg("failed to list stored games")
			continue
		}

		restored := 0
		for _, rec := range recs {
			sess, err := session.Restore(rec, svc.factory, a.log, saver)
			if err != nil {
				a.log.Warn().Err(err).Str("game_id", rec.ID).Msg("skipping corrupt game record")
				continue
			}
			if err := svc.Registry.Restore(rec.ID, sess); err != nil {
				a.log.Warn().Err(err).Str("game_id", rec.ID).Msg("skipping duplicate game record")
				continue
			}
			restored++
		}
		if restored > 0 {
			a.log.Info().Str("game_type", gameType).Int("count", restored).Msg("restored stored games")
		}
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
