package daemon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/api"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/macro"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/health"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/feed"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/memory"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/outbox"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/postgres"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/scheduler"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/sqlite"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

// Daemon is the Pilot runtime. It wires together all services.
type Daemon struct {
	Config    Config
	Store     domain.GameStore
	Outbox    *outbox.Outbox
	Sessions  *session.Manager
	Hub       *api.EventHub
	Server    *api.Server
	Health    *health.Checker
	Scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := OpenStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider, err := LoadScenarios(cfg.Game)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	hub := api.NewEventHub()
	ob := outbox.New(outbox.RetryConfig{
		MaxRetries: cfg.Outbox.MaxRetries,
		BaseDelay:  parseDuration(cfg.Outbox.BaseDelay, time.Second),
		MaxDelay:   parseDuration(cfg.Outbox.MaxDelay, 2*time.Minute),
		MaxPending: cfg.Outbox.MaxPending,
	}, hub)

	mgr, err := session.NewManager(session.Deps{
		Store:     store,
		Outbox:    ob,
		Macro:     provider,
		Source:    CandidateSource(cfg.Game),
		Publisher: hub,
	}, session.Config{
		Location:        cfg.Location(),
		DailySuperLikes: cfg.Game.DailySuperLikes,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	checker := health.NewChecker(health.Options{
		Store:    store,
		Outbox:   ob,
		Feed:     remoteFeed(cfg.Game),
		DataDir:  cfg.Storage.Dir,
		Interval: parseDuration(cfg.Schedule.HealthCheck, health.DefaultInterval),
	})

	srv := api.NewServer(mgr, hub)
	srv.SetHealth(checker)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	sched := scheduler.New(cfg.Location())
	jobs := []scheduler.Job{
		{Name: "outbox_flush", Spec: cfg.Schedule.OutboxFlush, Fn: func(ctx context.Context) {
			if res := ob.Flush(ctx); res.Attempted > 0 {
				logger.Info("[daemon] outbox retry: %d/%d written, %d dropped", res.Succeeded, res.Attempted, res.Dropped)
			}
		}},
		{Name: "rollover", Spec: cfg.Schedule.Rollover, Fn: func(ctx context.Context) {
			mgr.Rollover(ctx)
		}},
	}
	for _, j := range jobs {
		if err := sched.Register(j); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return &Daemon{
		Config:    cfg,
		Store:     store,
		Outbox:    ob,
		Sessions:  mgr,
		Hub:       hub,
		Server:    srv,
		Health:    checker,
		Scheduler: sched,
	}, nil
}

// OpenStore opens the configured GameStore.
func OpenStore(cfg StorageConfig) (domain.GameStore, error) {
	switch cfg.Driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case DriverSQLite, "":
		dir := cfg.Dir
		if dir == "" {
			dir = pilotHome()
		}
		db, err := sqlite.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// LoadScenarios returns the configured macro catalog.
func LoadScenarios(cfg GameConfig) (*macro.Provider, error) {
	if cfg.ScenariosPath == "" {
		return macro.Builtin(), nil
	}
	p, err := macro.LoadFile(cfg.ScenariosPath)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}
	return p, nil
}

// CandidateSource builds the deck source: a remote feed falling back to the
// local deck, the local YAML file, or the built-in deck.
func CandidateSource(cfg GameConfig) domain.CandidateSource {
	var local domain.CandidateSource = feed.NewStaticSource(nil)
	if cfg.FeedPath != "" {
		local = feed.FallbackSource{Primary: feed.FileSource{Path: cfg.FeedPath}, Fallback: local}
	}
	if cfg.FeedURL == "" {
		return local
	}
	return feed.FallbackSource{Primary: remoteFeed(cfg), Fallback: local}
}

// remoteFeed returns the HTTP deck source, or nil when no feed_url is set.
func remoteFeed(cfg GameConfig) domain.CandidateSource {
	if cfg.FeedURL == "" {
		return nil
	}
	base, path := splitURL(cfg.FeedURL)
	return feed.NewHTTPSource(base, path, parseDuration(cfg.FeedTimeout, 10*time.Second))
}

func splitURL(raw string) (base, path string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, ""
	}
	path = u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host, path
}

// Serve starts the HTTP server and background jobs and blocks until
// SIGINT, SIGTERM or ctx cancellation.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	d.Scheduler.Start(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		logger.Info("[daemon] shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Scheduler.Stop(shutdownCtx)
		d.Hub.Close()
		_ = httpServer.Shutdown(shutdownCtx)
		d.drain(shutdownCtx)
		cancel()
	}()

	logger.Info("[daemon] serving on http://%s (store: %s, timezone: %s)", addr, d.Config.Storage.Driver, d.Config.Game.Timezone)
	if d.Config.Telemetry.Prometheus {
		logger.Info("[daemon] metrics on http://%s/metrics", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		cancel()
		<-stopped
		return err
	}
	<-stopped
	return nil
}

// drain retries every deferred write once, then closes the store.
func (d *Daemon) drain(ctx context.Context) {
	if n := d.Outbox.Len(); n > 0 {
		res := d.Outbox.FlushAll(ctx)
		logger.Info("[daemon] final outbox flush: %d/%d written", res.Succeeded, res.Attempted)
		if left := d.Outbox.Len(); left > 0 {
			logger.Error("[daemon] %d deferred writes lost on shutdown", left)
		}
	}
	if err := d.Store.Close(); err != nil {
		logger.Warn("[daemon] close store: %v", err)
	}
}

// Close shuts down all daemon resources without serving.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d.Hub.Close()
	d.drain(ctx)
}
