package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/application/service"
	"arbscan/internal/domain/model"
	domainservice "arbscan/internal/domain/service"
	"arbscan/internal/infrastructure/cache"
	"arbscan/internal/infrastructure/config"
	"arbscan/internal/infrastructure/gateway"
	"arbscan/internal/infrastructure/ratelimit"
	"arbscan/internal/infrastructure/storage"
	postgresrepo "arbscan/internal/infrastructure/storage/postgres"
	redispub "arbscan/internal/infrastructure/storage/redis"
	sqliterepo "arbscan/internal/infrastructure/storage/sqlite"
	"arbscan/internal/interfaces/console"
)

// streamRunner is implemented by gateways that need a background feed loop.
type streamRunner interface {
	Run(ctx context.Context, symbols []string) error
}

// ServiceContext is the composition root. Every service is constructed here,
// owned here, and passed by reference to the scanner; nothing hides behind
// package-level singletons.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	Cache    *cache.QuoteCache
	Limiter  *ratelimit.Limiter
	Fees     *domainservice.FeeModel
	Gateways map[string]port.VenueGateway
	Scanner  *service.Scanner

	repo        port.OpportunityRepository
	publisher   port.SignalPublisher
	redisClient *redisclient.Client

	closerChain []func() error
}

// New wires the whole application in dependency order: cache and limiter
// first, then storage, gateways, and finally the scanner on top.
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{Ctx: ctx, Config: cfg}

	qc, err := cache.New(cacheConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("cache initialization failed: %w", err)
	}
	sc.Cache = qc

	sc.Limiter = ratelimit.New(ratelimit.Config{
		BaseDelay:        time.Duration(cfg.Limiter.BaseDelayMs) * time.Millisecond,
		MaxDelay:         time.Duration(cfg.Limiter.MaxDelayMs) * time.Millisecond,
		Jitter:           time.Duration(cfg.Limiter.JitterMs) * time.Millisecond,
		MaxRetries:       cfg.Limiter.MaxRetries,
		GroupStagger:     time.Duration(cfg.Limiter.GroupStaggerMs) * time.Millisecond,
		GroupConcurrency: cfg.Limiter.GroupConcurrency,
	})

	sc.Fees = domainservice.NewFeeModel(feeOverrides(cfg))

	if err := sc.initStorage(); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageInit, err)
	}

	if err := sc.initGateways(); err != nil {
		_ = sc.Close()
		return nil, err
	}

	sc.Scanner = service.NewScanner(service.ScannerDeps{
		Gateways:  sc.Gateways,
		Cache:     sc.Cache,
		Limiter:   sc.Limiter,
		Fees:      sc.Fees,
		Repo:      sc.repo,
		Publisher: sc.publisher,
		Retention: time.Duration(cfg.App.RetentionMin) * time.Minute,
	})

	log.Info().
		Int("gateways", len(sc.Gateways)).
		Int("symbols", len(cfg.Symbols.List)).
		Msg("all components initialized")

	return sc, nil
}

// ScanConfig translates file config into the scanner's per-invocation
// thresholds.
func (sc *ServiceContext) ScanConfig() model.ScanConfig {
	cfg := model.ScanConfig{
		MinProfitPercent:  sc.Config.Scan.MinProfitPercent,
		MaxRiskScore:      sc.Config.Scan.MaxRiskScore,
		MinVolume:         sc.Config.Scan.MinVolume,
		IncludeFees:       sc.Config.Scan.IncludeFees,
		IncludeWithdrawal: sc.Config.Scan.IncludeWithdrawal,
		Symbols:           sc.Config.Symbols.List,
		Interval:          time.Duration(sc.Config.App.ScanIntervalSec) * time.Second,
	}
	for venue := range sc.Gateways {
		cfg.Venues = append(cfg.Venues, venue)
	}
	return cfg
}

func (sc *ServiceContext) initStorage() error {
	switch {
	case sc.Config.SQLite.Enabled:
		repo, err := sqliterepo.New(sc.Config.SQLite.Path)
		if err != nil {
			return err
		}
		sc.repo = repo
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite connection")
			return repo.Close()
		})
		log.Info().Str("path", sc.Config.SQLite.Path).Msg("sqlite initialized")

	case sc.Config.Postgres.Enabled:
		repo, err := postgresrepo.New(sc.Config.Postgres.DSN)
		if err != nil {
			return err
		}
		sc.repo = repo
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return repo.Close()
		})
		log.Info().Msg("postgres initialized")

	default:
		sc.repo = storage.NewInMemoryRepo()
	}

	if sc.Config.Redis.Enabled {
		rdb := redisclient.NewClient(&redisclient.Options{
			Addr:     sc.Config.Redis.Addr,
			Password: sc.Config.Redis.Password,
			DB:       sc.Config.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}

		sc.redisClient = rdb
		sc.publisher = redispub.New(rdb, sc.Config.Redis.Prefix, sc.Config.Redis.Stream, sc.Config.Redis.Channel)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing redis connection")
			return rdb.Close()
		})
		log.Info().Str("addr", sc.Config.Redis.Addr).Int("db", sc.Config.Redis.DB).Msg("redis initialized")
	} else {
		sc.publisher = console.NewSink()
	}

	return nil
}

func (sc *ServiceContext) initGateways() error {
	sc.Gateways = make(map[string]port.VenueGateway)

	for _, venue := range sc.Config.EnabledVenues() {
		factory, ok := gateway.Get(venue)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVenue, venue)
		}
		vc := sc.Config.Venues[venue]
		url := vc.RestURL
		if vc.WsURL != "" {
			url = vc.WsURL
		}
		gw := factory(url)
		sc.Gateways[venue] = gw

		// Streaming adapters keep their own feed loop running for the
		// process lifetime.
		if runner, ok := gw.(streamRunner); ok {
			symbols := sc.Config.Symbols.List
			go func(name string) {
				if err := runner.Run(sc.Ctx, symbols); err != nil && sc.Ctx.Err() == nil {
					log.Error().Err(err).Str("venue", name).Msg("stream gateway exited")
				}
			}(venue)
		}
		log.Info().Str("venue", venue).Msg("gateway initialized")
	}

	if len(sc.Gateways) == 0 {
		return ErrNoVenuesEnabled
	}
	if len(sc.Gateways) < 2 {
		return ErrTooFewVenues
	}
	return nil
}

// Close releases every resource in reverse initialization order and clears
// the quote cache.
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	if sc.Cache != nil {
		sc.Cache.ClearAll()
	}
	return nil
}

func cacheConfig(cfg *config.Config) map[cache.Class]cache.ClassConfig {
	out := cache.DefaultConfig()
	for name, cc := range cfg.Cache {
		class := cache.Class(name)
		base, ok := out[class]
		if !ok {
			continue
		}
		if cc.TTLSeconds > 0 {
			base.TTL = time.Duration(cc.TTLSeconds) * time.Second
		}
		if cc.Capacity > 0 {
			base.Capacity = cc.Capacity
		}
		out[class] = base
	}
	return out
}

func feeOverrides(cfg *config.Config) map[string]model.FeeProfile {
	if len(cfg.Fees) == 0 {
		return nil
	}
	out := make(map[string]model.FeeProfile, len(cfg.Fees))
	for venue, fc := range cfg.Fees {
		out[venue] = model.FeeProfile{
			Venue:            venue,
			MakerRate:        fc.Maker,
			TakerRate:        fc.Taker,
			WithdrawalFeeUSD: fc.WithdrawalUSD,
		}
	}
	return out
}
