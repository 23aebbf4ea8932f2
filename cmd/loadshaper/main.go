package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/catalog"
	"github.com/shardops/loadshaper/internal/config"
	"github.com/shardops/loadshaper/internal/health"
	"github.com/shardops/loadshaper/internal/metrics"
	"github.com/shardops/loadshaper/internal/server"
	"github.com/shardops/loadshaper/internal/shaper"
	"github.com/shardops/loadshaper/internal/target"
)

func main() {
	var (
		configPath      = flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
		intensity       = flag.Int("intensity", 0, "load intensity 1-100 (overrides config)")
		durationMinutes = flag.Int("duration-minutes", 0, "session duration in minutes (overrides config)")
		oneTime         = flag.Bool("one-time", false, "single discovery pass, no re-poll for new tenants")
		longerBursts    = flag.Bool("longer-bursts", false, "widen burst durations and compress intervals")
		unbalanced      = flag.Bool("unbalanced", false, "overload one randomly chosen tenant")
		singleTenant    = flag.String("single-tenant", "", "overload this named tenant")
		singleTenantDTU = flag.Int("single-tenant-dtu", 0, "burst DTU for the overloaded tenant, 1-100")
		profilePath     = flag.String("profile", "", "path to a YAML workload profile")
		seed            = flag.Uint64("seed", 0, "RNG seed for deterministic runs (0 = from clock)")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting tenant load shaper")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	applyFlags(cfg, *intensity, *durationMinutes, *oneTime, *longerBursts,
		*unbalanced, *singleTenant, *singleTenantDTU, *profilePath, *seed)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("catalog_host", cfg.Catalog.Host),
		zap.String("catalog_database", cfg.Catalog.Database),
		zap.Int("intensity", cfg.Shaper.Intensity),
		zap.Duration("duration", cfg.Shaper.Duration),
		zap.Bool("one_shot", cfg.Shaper.OneShot),
		zap.Bool("single_tenant", cfg.Shaper.SingleTenant),
		zap.Bool("longer_bursts", cfg.Shaper.LongerBursts))

	m := metrics.NewMetrics()

	// Initialize shard catalog store
	store, err := catalog.NewPostgresStore(
		cfg.Catalog.Host,
		cfg.Catalog.Port,
		cfg.Catalog.Database,
		cfg.Catalog.User,
		cfg.Catalog.Password,
		cfg.Catalog.MaxConnections,
		cfg.Catalog.MinConnections,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize shard catalog", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Shard catalog initialized")

	// Initialize directory cache: Redis when configured, in-memory otherwise
	var cache catalog.Cache
	if cfg.Redis.Enabled {
		cache, err = catalog.NewRedisCache(
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis cache", zap.Error(err))
		}
		logger.Info("Redis directory cache initialized")
	} else {
		cache = catalog.NewInMemoryCache(cfg.Cache.MaxSize, logger)
		logger.Info("In-memory directory cache initialized")
	}

	directory := catalog.NewDirectory(store, cache, cfg.Cache.DirectoryTTL, logger)

	// Initialize the load endpoint client
	submitter := target.NewSQLSubmitter(target.Config{
		AdminUser:        cfg.Target.AdminUser,
		AdminPassword:    cfg.Target.AdminPassword,
		Port:             cfg.Target.Port,
		ProcedureTimeout: cfg.Target.ProcedureTimeout,
		MaxRetries:       cfg.Target.MaxRetries,
		RetryBackoff:     cfg.Target.RetryBackoff,
		MaxSubmitRate:    cfg.Target.MaxSubmitRate,
		OnRetry:          m.SubmissionRetries.Inc,
	}, logger)
	defer submitter.Close()

	// Optional workload profile
	var profile *shaper.Profile
	if cfg.Shaper.ProfilePath != "" {
		profile, err = shaper.LoadProfile(cfg.Shaper.ProfilePath)
		if err != nil {
			logger.Fatal("Failed to load workload profile", zap.Error(err))
		}
		logger.Info("Workload profile loaded",
			zap.String("path", cfg.Shaper.ProfilePath),
			zap.Int("overrides", len(profile.Tenants)))
	}

	session, err := shaper.NewSession(shaper.SessionConfig{
		Duration:     cfg.Shaper.Duration,
		PollInterval: cfg.Shaper.PollInterval,
		StopTimeout:  cfg.Shaper.StopTimeout,
		OneShot:      cfg.Shaper.OneShot,
		LongerBursts: cfg.Shaper.LongerBursts,
		Seed:         cfg.Shaper.Seed,
		Options: shaper.Options{
			Intensity:        cfg.Shaper.Intensity,
			SingleTenant:     cfg.Shaper.SingleTenant,
			SingleTenantName: cfg.Shaper.SingleTenantName,
			SingleTenantDTU:  cfg.Shaper.SingleTenantDTU,
			Profile:          profile,
		},
	}, directory, submitter, m, logger)
	if err != nil {
		logger.Fatal("Failed to create load session", zap.Error(err))
	}

	// Ops HTTP surface
	var ops *server.OpsServer
	if cfg.Ops.Enabled {
		checker := health.NewHealthChecker(store, logger)
		ops = server.NewOpsServer(cfg.Ops, checker, session, logger)
		ops.Start()
	}

	// Run the session until its deadline or an interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Run(ctx); err != nil {
		logger.Fatal("Load session failed", zap.Error(err))
	}

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Load shaper stopped", zap.String("session_id", session.ID()))
}

// applyFlags overlays the command-line scenario knobs onto the config
func applyFlags(cfg *config.Config, intensity, durationMinutes int, oneTime, longerBursts, unbalanced bool,
	singleTenant string, singleTenantDTU int, profilePath string, seed uint64) {
	if intensity > 0 {
		cfg.Shaper.Intensity = intensity
	}
	if durationMinutes > 0 {
		cfg.Shaper.Duration = time.Duration(durationMinutes) * time.Minute
	}
	if oneTime {
		cfg.Shaper.OneShot = true
	}
	if longerBursts {
		cfg.Shaper.LongerBursts = true
	}
	if unbalanced {
		cfg.Shaper.SingleTenant = true
	}
	if singleTenant != "" {
		cfg.Shaper.SingleTenant = true
		cfg.Shaper.SingleTenantName = singleTenant
	}
	if singleTenantDTU > 0 {
		cfg.Shaper.SingleTenantDTU = singleTenantDTU
	}
	if profilePath != "" {
		cfg.Shaper.ProfilePath = profilePath
	}
	if seed != 0 {
		cfg.Shaper.Seed = seed
	}
}
