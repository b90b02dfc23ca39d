// Package health provides automated health checks with auto-recovery
// for the artifact store directory.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maxent-labs/gisstore/internal/infra/metrics"
	"github.com/maxent-labs/gisstore/internal/infra/sqlite"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Config tunes the checker.
type Config struct {
	StoreDir   string
	Interval   time.Duration
	TempMaxAge time.Duration
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewChecker creates a health checker with the store checks.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.TempMaxAge <= 0 {
		cfg.TempMaxAge = 15 * time.Minute
	}

	c := &Checker{
		interval: cfg.Interval,
		logger:   logger.Named("health"),
		now:      time.Now,
	}
	c.checks = []Check{
		{
			Name: "store_dir",
			CheckFn: func(ctx context.Context) error {
				return checkStoreDir(cfg.StoreDir)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(cfg.StoreDir, 0o755)
			},
		},
		{
			Name: "temp_artifacts",
			CheckFn: func(ctx context.Context) error {
				stale, err := sqlite.StaleArtifacts(cfg.StoreDir, c.now().Add(-cfg.TempMaxAge))
				if err != nil {
					return err
				}
				if len(stale) > 0 {
					return fmt.Errorf("%d orphaned temporary artifacts", len(stale))
				}
				return nil
			},
			RecoverFn: func(ctx context.Context) error {
				stale, err := sqlite.StaleArtifacts(cfg.StoreDir, c.now().Add(-cfg.TempMaxAge))
				if err != nil {
					return err
				}
				var errs []error
				for _, p := range stale {
					if err := sqlite.RemoveArtifact(p); err != nil {
						errs = append(errs, err)
						continue
					}
					c.logger.Info("removed orphaned artifact", zap.String("path", p))
				}
				return errors.Join(errs...)
			},
		},
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: c.now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			if check.RecoverFn != nil {
				metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.logger.Warn("recovery failed", zap.String("check", check.Name), zap.Error(rerr))
				} else {
					s.Recovered = true
				}
			}
		} else {
			s.Healthy = true
		}

		if s.Healthy {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		} else {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
			c.logger.Warn("health check failed", zap.String("check", check.Name), zap.String("error", s.Error))
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkStoreDir requires the store to be a writable directory.
func checkStoreDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check store dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store path %s is not a directory", dir)
	}

	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("store dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
