package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/samirrijal/groupride/internal/adapters/graphhopper"
	"github.com/samirrijal/groupride/internal/adapters/http"
	natsadapter "github.com/samirrijal/groupride/internal/adapters/nats"
	"github.com/samirrijal/groupride/internal/adapters/overpass"
	"github.com/samirrijal/groupride/internal/adapters/photon"
	"github.com/samirrijal/groupride/internal/adapters/postgres"
	"github.com/samirrijal/groupride/internal/adapters/valkey"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/core/synthesis"
	"github.com/samirrijal/groupride/internal/core/usecases"
	"github.com/samirrijal/groupride/internal/pkg/config"
	"github.com/samirrijal/groupride/internal/pkg/logging"
	"github.com/samirrijal/groupride/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load("groupride-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache and generation lock. Both are optional; without them searches
	// are uncached and generations are not serialized across instances.
	var (
		cacheSvc ports.CacheService
		locker   ports.Locker
	)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
		locker = valkey.NewLocker(cache)
	}

	// NATS: events are best effort, the WebSocket relay needs a plain connection.
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Providers
	httpClient := &nethttp.Client{}
	routing := graphhopper.New(graphhopper.Config{
		BaseURL: cfg.Routing.BaseURL,
		APIKey:  cfg.Routing.APIKey,
		Profile: cfg.Routing.Profile,
		Timeout: cfg.Routing.Timeout(),
	}, httpClient)
	pois := overpass.New(overpass.Config{
		URL:               cfg.POI.OverpassURL,
		Timeout:           cfg.POI.Timeout(),
		RequestsPerSecond: cfg.POI.RequestsPerSecond,
		Logger:            logger,
	}, httpClient)
	places := photon.New(photon.Config{
		BaseURL:           cfg.POI.PhotonURL,
		Timeout:           cfg.POI.Timeout(),
		RequestsPerSecond: cfg.POI.RequestsPerSecond,
	}, httpClient)

	synth := synthesis.NewSynthesizer(routing, pois, synthesis.Options{
		Variants:              cfg.Synthesis.Variants,
		SeedStep:              cfg.Synthesis.SeedStep,
		MaxPOIsPerRoute:       cfg.Synthesis.MaxPOIsPerRoute,
		MinimizeHillsGradient: cfg.Synthesis.MinimizeHillsGradient,
		MaximizeHillsGradient: cfg.Synthesis.MaximizeHillsGradient,
		MinSearchRadiusKm:     cfg.Synthesis.MinSearchRadiusKm,
		CallTimeout:           time.Duration(cfg.Synthesis.CallTimeoutSeconds) * time.Second,
		Logger:                logger,
	})

	// Repos
	rideRepo := postgres.NewRideRepo(db)
	prefRepo := postgres.NewPreferenceRepo(db)

	deps := &http.Dependencies{
		Rides:       usecases.NewRideService(rideRepo, events),
		Preferences: usecases.NewPreferenceService(rideRepo, prefRepo, events),
		Generation: usecases.NewGenerationService(rideRepo, prefRepo, synth, locker, events,
			time.Duration(cfg.Synthesis.LockTTLSeconds)*time.Second),
		POIs:         usecases.NewPOISearchService(places, cacheSvc, cfg.POI.SearchCacheTTL),
		DB:           db,
		AllowOrigins: cfg.Server.AllowOrigins,
		Version:      version,
	}
	if cache != nil {
		deps.Cache = cache
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GroupRide API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
