package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/maxent-labs/gisstore/internal/api"
	"github.com/maxent-labs/gisstore/internal/domain"
	"github.com/maxent-labs/gisstore/internal/health"
	"github.com/maxent-labs/gisstore/internal/infra/sqlite"
)

// Daemon is the gisstore runtime. It wires together all services.
type Daemon struct {
	Config   Config
	Logger   *zap.Logger
	Writer   domain.StructuralWriter
	Verifier domain.ArtifactVerifier
	Server   *api.Server
	Health   *health.Checker

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// NewLogger builds a production JSON logger at the given level.
// verbose forces debug regardless of level.
func NewLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

// New creates and initializes a Daemon with all services wired.
func New(logger *zap.Logger) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, logger)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, logger *zap.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := sqlite.Options{Synchronous: cfg.Store.Synchronous}
	writer, err := sqlite.NewBackend(cfg.Store.Backend, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("store backend: %w", err)
	}
	verifier, ok := writer.(domain.ArtifactVerifier)
	if !ok {
		return nil, fmt.Errorf("store backend %q cannot verify artifacts", cfg.Store.Backend)
	}

	checker := health.NewChecker(health.Config{
		StoreDir:   cfg.Store.Dir,
		Interval:   cfg.Health.Interval.Duration,
		TempMaxAge: cfg.Health.TempMaxAge.Duration,
	}, logger)

	srv := api.NewServer(writer, verifier, cfg.Store.Dir, logger)
	srv.SetHealth(checker)
	srv.SetMaxBodyMB(cfg.API.MaxBodyMB)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:   cfg,
		Logger:   logger,
		Writer:   writer,
		Verifier: verifier,
		Server:   srv,
		Health:   checker,
	}, nil
}

// Addr is the listen address from the API config.
func (d *Daemon) Addr() string {
	return net.JoinHostPort(d.Config.API.Host, strconv.Itoa(d.Config.API.Port))
}

// Serve starts the HTTP server and blocks until ctx is cancelled or a
// termination signal arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return d.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (d *Daemon) ServeListener(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancel = cancel
	if d.closed {
		cancel()
	}
	d.mu.Unlock()

	if err := os.MkdirAll(d.Config.Store.Dir, 0o755); err != nil {
		return fmt.Errorf("store dir: %w", err)
	}

	httpServer := &http.Server{
		Handler:      d.Server.Handler(),
		ReadTimeout:  2 * time.Minute, // snapshot uploads can be large
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		d.Logger.Info("serving",
			zap.String("addr", ln.Addr().String()),
			zap.String("store", d.Config.Store.Dir),
			zap.Bool("metrics", d.Config.Telemetry.Prometheus),
		)
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err := g.Wait()
	d.Logger.Info("stopped")
	return err
}

// Close stops a running Serve. It is safe to call from any goroutine, and a
// Serve started after Close returns at once.
func (d *Daemon) Close() {
	d.mu.Lock()
	d.closed = true
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	_ = d.Logger.Sync()
}
