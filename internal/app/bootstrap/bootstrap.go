package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	topicdistribution "topicdesk/contexts/seminar-coordination/topic-distribution"
	busadapter "topicdesk/contexts/seminar-coordination/topic-distribution/adapters/bus"
	"topicdesk/contexts/seminar-coordination/topic-distribution/adapters/memory"
	postgresadapter "topicdesk/contexts/seminar-coordination/topic-distribution/adapters/postgres"
	"topicdesk/contexts/seminar-coordination/topic-distribution/adapters/wallclock"
	"topicdesk/internal/platform/bus"
	"topicdesk/internal/platform/config"
	"topicdesk/internal/platform/db"
	"topicdesk/internal/platform/httpserver"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server        *httpserver.Server
	module        topicdistribution.Module
	bus           *bus.Bus
	postgres      *db.Postgres
	relayEnabled  bool
	relayInterval time.Duration
	logger        *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	bus          *bus.Bus
	module       topicdistribution.Module
	pollInterval time.Duration
	logger       *slog.Logger
}

// BuildAPI wires the distribution engine. With POSTGRES_DSN unset, state
// lives in the in-memory store and the process is self-contained; with a DSN
// the gorm adapter backs every port and the outbox survives restarts.
func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	eventBus := bus.New(0)

	var (
		module topicdistribution.Module
		pg     *db.Postgres
	)
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(); err != nil {
			_ = pg.Close()
			return nil, err
		}
		module = topicdistribution.NewModule(topicdistribution.Dependencies{
			Subjects:     repo,
			Ledger:       repo,
			Pending:      repo,
			Outbox:       repo,
			Publisher:    busadapter.NewPublisher(eventBus, logger),
			Clock:        wallclock.New(),
			IDGen:        repo,
			ReminderLead: cfg.ReminderLead,
			PendingTTL:   cfg.PendingTTL,
			Logger:       logger,
		})
	} else {
		store := memory.NewStore()
		module = topicdistribution.NewModule(topicdistribution.Dependencies{
			Subjects:     store,
			Ledger:       store,
			Pending:      store,
			Outbox:       store,
			Publisher:    busadapter.NewPublisher(eventBus, logger),
			Clock:        wallclock.New(),
			IDGen:        store,
			ReminderLead: cfg.ReminderLead,
			PendingTTL:   cfg.PendingTTL,
			Logger:       logger,
		})
		module.Store = store
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort), cfg.AdminToken)
	return &APIApp{
		server:        server,
		module:        module,
		bus:           eventBus,
		postgres:      pg,
		relayEnabled:  cfg.EnableOutboxRelay,
		relayInterval: cfg.RelayInterval,
		logger:        logger,
	}, nil
}

// BuildWorker wires the standalone outbox relay. It only makes sense against
// postgres: with the in-memory store the API process relays its own outbox.
func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	eventBus := bus.New(0)
	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := topicdistribution.NewModule(topicdistribution.Dependencies{
		Subjects:  repo,
		Ledger:    repo,
		Pending:   repo,
		Outbox:    repo,
		Publisher: busadapter.NewPublisher(eventBus, logger),
		Clock:     wallclock.New(),
		IDGen:     repo,
		Logger:    logger,
	})
	return &WorkerApp{
		postgres:     pg,
		bus:          eventBus,
		module:       module,
		pollInterval: cfg.RelayInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	go logBusDeliveries(ctx, a.bus, a.logger)
	if a.relayEnabled {
		go a.runRelay(ctx)
	}
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"persistent", a.postgres != nil,
	)
	return a.server.Start()
}

func (a *APIApp) runRelay(ctx context.Context) {
	ticker := time.NewTicker(a.relayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := a.module.Relay.RunOnce(ctx); err != nil {
			a.logger.Error("outbox relay pass failed",
				"event", "bootstrap_relay_pass_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
	}
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	go logBusDeliveries(ctx, w.bus, w.logger)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.module.Relay.RunOnce(ctx); err != nil {
			return err
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

// logBusDeliveries drains one subscription so relayed events always have at
// least one consumer; the original deployment hangs a chat notifier here.
func logBusDeliveries(ctx context.Context, eventBus *bus.Bus, logger *slog.Logger) {
	sub := eventBus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub:
			logger.Info("event delivered",
				"event", "bootstrap_event_delivered",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"event_type", msg.Topic,
				"payload_bytes", len(msg.Payload),
			)
		}
	}
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
