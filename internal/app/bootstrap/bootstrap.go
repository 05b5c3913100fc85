package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	electionengine "ballotbox/contexts/election-operations/election-engine"
	"ballotbox/contexts/election-operations/election-engine/adapters/memory"
	postgresadapter "ballotbox/contexts/election-operations/election-engine/adapters/postgres"
	redisadapter "ballotbox/contexts/election-operations/election-engine/adapters/redis"
	"ballotbox/contexts/election-operations/election-engine/application/workers"
	"ballotbox/contexts/election-operations/election-engine/ports"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/db"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	relay    *workers.OutboxRelay
	interval time.Duration
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workers.OutboxRelay
	projector    workers.ResultsProjector
	pollInterval time.Duration
	logger       *slog.Logger
}

type wiring struct {
	module      electionengine.Module
	elections   ports.ElectionRepository
	tallies     ports.TallyRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	cache       ports.ResultsCache
	publisher   ports.EventPublisher
	subscriber  ports.EventSubscriber
	postgres    *db.Postgres
	usingMemory bool
}

func buildWiring(cfg config.Config, logger *slog.Logger) (wiring, error) {
	var publisher ports.EventPublisher
	var subscriber ports.EventSubscriber
	if cfg.NATSURL != "" {
		nats, err := messaging.NewNATSBus(cfg.NATSURL, logger)
		if err != nil {
			return wiring{}, err
		}
		publisher, subscriber = nats, nats
	} else {
		inproc := messaging.NewBus(logger)
		publisher, subscriber = inproc, inproc
	}

	var cache ports.ResultsCache
	if cfg.RedisAddr != "" {
		cache = redisadapter.NewResultsCache(cfg.RedisAddr, cfg.ResultsTTL, logger)
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		store := memory.NewStore(nil)
		store.ResultsTTL = cfg.ResultsTTL
		if cache == nil {
			cache = store
		}
		module := electionengine.NewModule(electionengine.Dependencies{
			Elections:    store,
			Tallies:      store,
			Outbox:       store,
			ResultsCache: cache,
			Clock:        store,
			IDGen:        store,
			Logger:       logger,
		})
		module.Store = store
		return wiring{
			module:      module,
			elections:   store,
			tallies:     store,
			outbox:      store,
			clock:       store,
			cache:       cache,
			publisher:   publisher,
			subscriber:  subscriber,
			usingMemory: true,
		}, nil
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return wiring{}, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.Migrate(); err != nil {
		_ = pg.Close()
		return wiring{}, err
	}

	module := electionengine.NewModule(electionengine.Dependencies{
		Elections:    repo,
		Tallies:      repo,
		Outbox:       repo,
		ResultsCache: cache,
		Clock:        postgresadapter.SystemClock{},
		IDGen:        postgresadapter.UUIDGenerator{},
		Logger:       logger,
	})
	return wiring{
		module:     module,
		elections:  repo,
		tallies:    repo,
		outbox:     repo,
		clock:      postgresadapter.SystemClock{},
		cache:      cache,
		publisher:  publisher,
		subscriber: subscriber,
		postgres:   pg,
	}, nil
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	wired, err := buildWiring(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := httpserver.Options{EnableSwagger: cfg.EnableSwagger}
	if cfg.EnableLivePush {
		opts.Subscriber = wired.subscriber
	}
	server := httpserver.New(wired.module, logger, normalizeAddr(cfg.HTTPPort), opts)

	app := &APIApp{
		server:   server,
		postgres: wired.postgres,
		interval: cfg.RelayInterval,
		logger:   logger,
	}
	if wired.usingMemory {
		// Single-process mode: drain the outbox here so the live feed still
		// sees changes without a separate worker.
		app.relay = &workers.OutboxRelay{
			Outbox:    wired.outbox,
			Publisher: wired.publisher,
			Clock:     wired.clock,
			BatchSize: 100,
			Logger:    logger,
		}
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	wired, err := buildWiring(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{
		postgres: wired.postgres,
		outboxRelay: workers.OutboxRelay{
			Outbox:    wired.outbox,
			Publisher: wired.publisher,
			Clock:     wired.clock,
			BatchSize: 100,
			Logger:    logger,
		},
		projector: workers.ResultsProjector{
			Subscriber: wired.subscriber,
			Elections:  wired.elections,
			Tallies:    wired.tallies,
			Cache:      wired.cache,
			Clock:      wired.clock,
			Logger:     logger,
		},
		pollInterval: cfg.RelayInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	group, ctx := errgroup.WithContext(ctx)
	if a.relay != nil {
		relay := a.relay
		group.Go(func() error {
			ticker := time.NewTicker(a.interval)
			defer ticker.Stop()
			for {
				if err := relay.RunOnce(ctx); err != nil {
					a.logger.Error("outbox relay cycle failed",
						"event", "bootstrap_relay_failed",
						"module", "internal/app/bootstrap",
						"layer", "platform",
						"error", err.Error(),
					)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	group.Go(a.server.Start)
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.projector.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			w.logger.Error("outbox relay cycle failed",
				"event", "bootstrap_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
