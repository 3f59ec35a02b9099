package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"satfarm/internal/adapter/catalog"
	"satfarm/internal/adapter/geocode"
	"satfarm/internal/adapter/nasapower"
	gormrepo "satfarm/internal/adapter/repo/gorm"
	"satfarm/internal/adapter/repo/memory"
	"satfarm/internal/adapter/rng"
	envapp "satfarm/internal/app/environment"
	"satfarm/internal/app/ports"
	"satfarm/internal/config"
	envdomain "satfarm/internal/domain/environment"
	"satfarm/internal/domain/farm"
)

type wiring struct {
	cfg     config.Config
	log     zerolog.Logger
	catalog *catalog.Catalog
}

func bootstrap(opts *rootOptions, logOut io.Writer) (wiring, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return wiring{}, err
	}
	if opts.catalogPath != "" {
		cfg.CatalogPath = opts.catalogPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return wiring{}, err
		}
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return wiring{}, fmt.Errorf("load catalog: %w", err)
	}
	return wiring{cfg: cfg, log: cfg.Logger(logOut), catalog: cat}, nil
}

func (r wiring) location() *farm.Location {
	if r.cfg.Location == nil {
		return nil
	}
	return &farm.Location{
		Latitude:  r.cfg.Location.Latitude,
		Longitude: r.cfg.Location.Longitude,
		Label:     r.cfg.Location.Label,
	}
}

func (r wiring) seed() int64 {
	if r.cfg.Seed != 0 {
		return r.cfg.Seed
	}
	return time.Now().UnixNano()
}

func (r wiring) randomSources() (pest farm.RandomSource, jitter farm.RandomSource) {
	seed := r.seed()
	return rand.New(rand.NewSource(seed)), rng.NewNoise(seed)
}

func (r wiring) environmentUseCase(metrics ports.EnvironmentMetrics) envapp.UseCase {
	def := envdomain.DefaultLocation()
	if loc := r.location(); loc != nil {
		def = *loc
	}
	uc := envapp.UseCase{
		Weather: nasapower.NewClient(nasapower.Config{
			BaseURL:  r.cfg.POWERBaseURL,
			Timeout:  r.cfg.POWERTimeout,
			CacheTTL: r.cfg.WeatherCacheTTL,
		}),
		Metrics: metrics,
		Log:     r.log.With().Str("component", "Environment").Logger(),
		Default: def,
		Now:     time.Now,
	}
	if r.cfg.GeocodeURL != "" {
		uc.Geocoder = geocode.NewClient(r.cfg.GeocodeURL, "en")
	}
	return uc
}

type stores struct {
	journal ports.JournalRepository
	scores  ports.ScoreboardRepository
	tx      ports.TxManager
	close   func() error
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.DBDriver == config.DriverMemory {
		s := memory.NewStore()
		return stores{
			journal: memory.NewJournalRepo(s),
			scores:  memory.NewScoreboardRepo(s),
			tx:      memory.NewTxManager(s),
			close:   func() error { return nil },
		}, nil
	}
	db, err := gormrepo.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return stores{}, err
	}
	if err := gormrepo.ApplyMigrations(ctx, db); err != nil {
		closeDB(db)
		return stores{}, fmt.Errorf("migrate: %w", err)
	}
	return stores{
		journal: gormrepo.NewJournalRepo(db),
		scores:  gormrepo.NewScoreboardRepo(db),
		tx:      gormrepo.NewTxManager(db),
		close:   func() error { return closeDB(db) },
	}, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
