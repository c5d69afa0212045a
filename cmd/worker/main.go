package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/groupride/internal/adapters/graphhopper"
	natsadapter "github.com/samirrijal/groupride/internal/adapters/nats"
	"github.com/samirrijal/groupride/internal/adapters/overpass"
	"github.com/samirrijal/groupride/internal/adapters/postgres"
	"github.com/samirrijal/groupride/internal/adapters/valkey"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/core/synthesis"
	"github.com/samirrijal/groupride/internal/core/usecases"
	"github.com/samirrijal/groupride/internal/pkg/config"
	"github.com/samirrijal/groupride/internal/pkg/logging"
	"github.com/samirrijal/groupride/internal/pkg/telemetry"
	"github.com/samirrijal/groupride/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("groupride-worker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, "groupride-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, "groupride-worker", cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var locker ports.Locker
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, generation runs are not serialized", "error", err)
	} else {
		defer cache.Close()
		locker = valkey.NewLocker(cache)
	}

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats publisher unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

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

	genSvc := usecases.NewGenerationService(
		postgres.NewRideRepo(db),
		postgres.NewPreferenceRepo(db),
		synth, locker, events,
		time.Duration(cfg.Synthesis.LockTTLSeconds)*time.Second,
	)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal dial: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RouteGenerationWorkflow)
	w.RegisterActivity(&workflows.GenerationActivities{Generator: genSvc})

	// Bridge generate.requested events from the broker into workflow runs.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	dispatcher := workflows.NewDispatcher(c, cfg.Temporal.TaskQueue, logger)
	if err := sub.SubscribeGenerateRequests(ctx, dispatcher.Handle); err != nil {
		log.Fatalf("subscribe generate requests: %v", err)
	}

	slog.Info("generation worker starting", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
	slog.Info("generation worker stopped")
}
