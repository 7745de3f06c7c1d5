package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendscout-net/trendscout/internal/agent"
	"github.com/trendscout-net/trendscout/internal/api"
	"github.com/trendscout-net/trendscout/internal/app/tasks"
	"github.com/trendscout-net/trendscout/internal/health"
	"github.com/trendscout-net/trendscout/internal/infra/ollama"
	"github.com/trendscout-net/trendscout/internal/infra/redisq"
	"github.com/trendscout-net/trendscout/internal/infra/sqlite"
	"github.com/trendscout-net/trendscout/internal/security"
)

// Daemon is the core TrendScout runtime. It wires together the store,
// the queue, the agent executors, the worker pool and the API server.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Queue   *redisq.Queue
	Backend *ollama.Client
	Catalog *agent.Catalog
	Service *tasks.Service
	Server  *api.Server
	Workers *tasks.Pool
	Health  *health.Checker

	cancel context.CancelFunc
}

// New creates and initializes a Daemon from the on-disk config.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	dir := cfg.Storage.Dir
	if dir == "" {
		dir = trendscoutHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	queueKey := cfg.Redis.Queue
	if queueKey == "" {
		queueKey = redisq.DefaultKey
	}
	queue := redisq.New(cfg.Redis.Addr, cfg.Redis.DB, queueKey)

	backend := ollama.New(cfg.Ollama.Host, cfg.Ollama.Model,
		parseDuration(cfg.Ollama.Timeout, 5*time.Minute))

	catalog, err := agent.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("build agent catalog: %w", err)
	}
	runner := agent.NewRunner(catalog, backend)
	crew := agent.NewCrewExecutor(catalog, runner, db)

	svc := tasks.NewService(db, queue, catalog)

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = randomSecret()
		log.Printf("[daemon] WARNING: auth.secret not set, using an ephemeral secret; tokens will not survive a restart")
	}
	issuer := security.NewTokenIssuer(secret, parseDuration(cfg.Auth.TokenExpiry, 24*time.Hour))

	srv := api.NewServer(svc, db, issuer)
	srv.AddHealthCheck("store", db)
	srv.AddHealthCheck("queue", queue)
	srv.AddHealthCheck("backend", backend)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	pool := tasks.NewPool(cfg.Worker.Count, db, queue, runner, crew,
		parseDuration(cfg.Worker.PollTimeout, 2*time.Second))

	checker := health.NewChecker(60 * time.Second)
	checker.Add("store", db.Ping)
	checker.Add("queue", queue.Ping)
	checker.Add("backend", backend.Ping)

	return &Daemon{
		Config:  cfg,
		DB:      db,
		Queue:   queue,
		Backend: backend,
		Catalog: catalog,
		Service: svc,
		Server:  srv,
		Workers: pool,
		Health:  checker,
	}, nil
}

// Serve starts the worker pool and the HTTP server, blocking until
// shutdown. Workers drain their in-flight task before exiting.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		d.Workers.Run(ctx)
	}()

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		// In-flight tasks run to completion; the pop timeout bounds how
		// long an idle worker takes to notice the cancel.
		<-workersDone

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.Queue.Close()
		_ = d.DB.Close()
	}()

	fmt.Printf("TrendScout serving on http://%s (%d workers)\n", addr, d.Config.Worker.Count)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunWorkers starts only the worker pool, for worker-only deployments
// that point at the same Redis and SQLite as a serving daemon.
func (d *Daemon) RunWorkers(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()
	}()

	go d.Health.Run(ctx)

	log.Printf("[daemon] worker pool started (%d workers)", d.Config.Worker.Count)
	d.Workers.Run(ctx)

	_ = d.Queue.Close()
	_ = d.DB.Close()
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Queue != nil {
		_ = d.Queue.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(buf)
}
