// Package app wires configuration into the service graph shared by the
// server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/cache"
	"github.com/navojoa/electoral-map/internal/config"
	"github.com/navojoa/electoral-map/internal/database"
	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/report"
	"github.com/navojoa/electoral-map/internal/repository"
	"github.com/navojoa/electoral-map/internal/sections"
	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/internal/session"
)

// App holds the long-lived services
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sql.DB
	Redis    *redis.Client
	Persons  *service.PersonService
	Sections *service.SectionService
	Maps     *service.MapService
}

// New opens storage and builds the services
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbCfg := database.Config{Driver: cfg.DBDriver, Path: cfg.DBPath, Logger: logger}
	if err := database.Init(dbCfg); err != nil {
		return nil, err
	}
	conn := database.GetDB()

	a := &App{Config: cfg, Logger: logger, DB: conn}
	a.Persons = service.NewPersonService(repository.NewPersonRepository(conn, database.Driver()))

	a.Redis = cache.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	statsCache := cache.NewStatsCache(a.Redis, cfg.StatsCacheTTL)
	if statsCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := statsCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, stats cache will miss", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
	}

	loader := sections.NewLoader(cfg.SectionsGeoJSON, sections.NewFetcher(cfg.SectionsMaxBytes), report.ZapReporter{L: logger})
	a.Sections = service.NewSectionService(a.Persons, loader, statsCache, logger)
	a.Maps = service.NewMapService(a.Persons, mapdata.ClusterOptions{
		MaxZoom: cfg.ClusterMaxZoom,
		Radius:  cfg.ClusterRadius,
	})
	return a, nil
}

// SessionDeps binds map sessions to the services
func (a *App) SessionDeps() session.Deps {
	return session.Deps{
		Updater:   a.Persons,
		Expansion: a.Maps.ExpansionZoom,
		Stats:     a.Sections.StatsIndex,
		Persons: func(ctx context.Context) ([]models.Person, error) {
			snap, err := a.Persons.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			return snap.Persons, nil
		},
		Reporter: report.ZapReporter{L: a.Logger},
	}
}

// Close releases storage handles
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	database.Close()
}
