package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	votingengine "sealedgov/contexts/governance/voting-engine"
	"sealedgov/contexts/governance/voting-engine/adapters/execution"
	leveldbadapter "sealedgov/contexts/governance/voting-engine/adapters/leveldb"
	"sealedgov/contexts/governance/voting-engine/adapters/memory"
	postgresadapter "sealedgov/contexts/governance/voting-engine/adapters/postgres"
	"sealedgov/contexts/governance/voting-engine/adapters/signature"
	"sealedgov/contexts/governance/voting-engine/application/workers"
	"sealedgov/contexts/governance/voting-engine/domain/commitment"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
	"sealedgov/contexts/governance/voting-engine/ports"
	"sealedgov/internal/platform/chain"
	"sealedgov/internal/platform/config"
	"sealedgov/internal/platform/db"
	"sealedgov/internal/platform/httpserver"
	"sealedgov/internal/platform/logging"
	"sealedgov/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	relay   *relayLoop
	runtime *runtime
	logger  *slog.Logger

	relayWG sync.WaitGroup
}

type WorkerApp struct {
	relay   *relayLoop
	runtime *runtime
	logger  *slog.Logger
}

// runtime is the storage backend chosen by STORE_BACKEND plus everything
// that must be closed with it.
type runtime struct {
	repo    ports.Repository
	outbox  ports.OutboxRepository
	clock   ports.Clock
	idGen   ports.IDGenerator
	closers []func() error
	log     *logging.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt, err := openRuntime(ctx, cfg, "api")
	if err != nil {
		return nil, err
	}
	logger := rt.log.Logger

	heights, err := chain.NewWallClockHeight(cfg.GenesisTime, cfg.BlockInterval)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	hasher, err := commitment.ParseHasher(cfg.CommitmentHash)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	verifier, err := signature.New(cfg.SignatureScheme)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := applyDelegationPolicy(ctx, rt.repo, cfg.DelegationEnabled); err != nil {
		_ = rt.Close()
		return nil, err
	}

	module := votingengine.NewModule(votingengine.Dependencies{
		Repo:                      rt.repo,
		Heights:                   heights,
		Clock:                     rt.clock,
		IDGen:                     rt.idGen,
		Hasher:                    hasher,
		Verifier:                  verifier,
		Hook:                      execution.LogHook{Logger: logger},
		Administrators:            cfg.Administrators,
		GlobalReputationThreshold: cfg.GlobalReputationThreshold,
		StrictOptions:             cfg.StrictOptions,
		ResultCacheSize:           cfg.ResultCacheSize,
		Logger:                    logger,
	})

	app := &APIApp{
		server:  httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
		runtime: rt,
		logger:  logger,
	}
	// Memory and leveldb state is private to this process, so the relay runs
	// here instead of in cmd/worker.
	if cfg.StoreBackend != config.BackendPostgres {
		app.relay = newRelayLoop(cfg, rt, logger)
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.StoreBackend != config.BackendPostgres {
		return nil, fmt.Errorf("worker requires STORE_BACKEND=postgres, got %q; other backends relay inside the api process", cfg.StoreBackend)
	}
	rt, err := openRuntime(ctx, cfg, "worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		relay:   newRelayLoop(cfg, rt, rt.log.Logger),
		runtime: rt,
		logger:  rt.log.Logger,
	}, nil
}

func openRuntime(ctx context.Context, cfg config.Config, process string) (*runtime, error) {
	log, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Service: cfg.ServiceName,
		Process: process,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log.Logger)
	logger := log.Logger

	rt := &runtime{log: log}
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			_ = log.Close()
			return nil, errors.New("POSTGRES_DSN is required")
		}
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			_ = log.Close()
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			_ = log.Close()
			return nil, err
		}
		rt.repo, rt.outbox = repo, repo
		rt.clock, rt.idGen = postgresadapter.SystemClock{}, postgresadapter.UUIDGenerator{}
		rt.closers = append(rt.closers, pg.Close)
	case config.BackendLevelDB:
		store, err := leveldbadapter.Open(cfg.LevelDBPath, logger)
		if err != nil {
			_ = log.Close()
			return nil, err
		}
		rt.repo, rt.outbox = store, store
		rt.clock, rt.idGen = postgresadapter.SystemClock{}, postgresadapter.UUIDGenerator{}
		rt.closers = append(rt.closers, store.Close)
	default:
		store := memory.NewStore()
		rt.repo, rt.outbox = store, store
		rt.clock, rt.idGen = store, store
	}
	rt.closers = append(rt.closers, log.Close)

	logger.Info("storage backend ready",
		"event", "bootstrap_backend_ready",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"backend", cfg.StoreBackend,
	)
	return rt, nil
}

func (rt *runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for _, closeFn := range rt.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyDelegationPolicy persists DELEGATION_ENABLED=false. An enabled config
// leaves whatever an administrator stored at runtime.
func applyDelegationPolicy(ctx context.Context, repo ports.Repository, enabled bool) error {
	if enabled {
		return nil
	}
	return repo.Atomic(ctx, func(ctx context.Context, tx ports.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if settings.DelegationDisabled {
			return nil
		}
		return tx.SaveSettings(ctx, entities.Settings{
			EmergencyMode:      settings.EmergencyMode,
			DelegationDisabled: true,
			UpdatedHeight:      settings.UpdatedHeight,
		})
	})
}

type relayLoop struct {
	relay        workers.OutboxRelay
	execution    *workers.ExecutionConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func newRelayLoop(cfg config.Config, rt *runtime, logger *slog.Logger) *relayLoop {
	bus := messaging.NewBus(logger)
	loop := &relayLoop{
		relay: workers.OutboxRelay{
			Outbox:    rt.outbox,
			Publisher: bus,
			Clock:     rt.clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}
	if loop.pollInterval <= 0 {
		loop.pollInterval = 2 * time.Second
	}
	if endpoint := strings.TrimSpace(cfg.ExecutionWebhookURL); endpoint != "" {
		hook := execution.NewWebhookHook(endpoint, cfg.ExecutionWebhookTimeout, logger)
		loop.execution = workers.NewExecutionConsumer(bus, hook, "", logger)
	}
	return loop
}

func (l *relayLoop) Run(ctx context.Context) error {
	if l.execution != nil {
		if err := l.execution.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	l.logger.Info("outbox relay loop started",
		"event", "bootstrap_relay_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", l.pollInterval.String(),
	)

	for {
		// A failed batch is retried on the next tick.
		if _, err := l.relay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_relay_cycle_failed",
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

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_relay", a.relay != nil,
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.startRelay(ctx)
	err := a.server.Start(ctx)
	cancel()
	a.relayWG.Wait()
	return err
}

// startRelay runs the embedded relay until ctx ends. Run and Close both wait
// for it, so the runtime is never closed under a live relay.
func (a *APIApp) startRelay(ctx context.Context) {
	if a.relay == nil {
		return
	}
	a.relayWG.Add(1)
	go func() {
		defer a.relayWG.Done()
		if err := a.relay.Run(ctx); err != nil {
			a.logger.Error("embedded outbox relay stopped",
				"event", "bootstrap_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
	}()
}

func (a *APIApp) Close() error {
	a.relayWG.Wait()
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return w.relay.Run(ctx)
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
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
