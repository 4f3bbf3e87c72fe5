// Package daemon owns the long-running process: it enforces single-instance
// execution with a file lock, starts the scheduler loop, and serves the
// control API the CLI talks to.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"rythmx/internal/config"
	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/scheduler"
	"rythmx/internal/store"
)

// Components are the daemon's collaborators, constructed by the caller so
// tests can substitute fakes.
type Components struct {
	Store     *store.Store
	Scheduler Cycler
	Resolver  Resolver
	Worker    Worker
	Library   library.Library
}

// Cycler is the slice of the scheduler the control surface needs.
// *scheduler.Scheduler satisfies it.
type Cycler interface {
	RunCycle(ctx context.Context, mode scheduler.Mode, force bool) scheduler.Result
	Status(ctx context.Context) scheduler.Status
	DiscoveryCandidates(ctx context.Context, limit int, newReleasesOnly bool) ([]scheduler.DiscoveryCandidate, error)
	Start()
	Stop()
}

// Daemon coordinates component lifecycles and the instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running bool
}

// New constructs a daemon. The lock file lives next to the store in the
// data directory.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comps.Store == nil || comps.Scheduler == nil {
		return nil, errors.New("daemon requires config, store, and scheduler")
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "rythmxd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		comps:    comps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts the scheduler loop, and brings
// up the control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", d.lockPath)
	}

	if d.server != nil {
		if err := d.server.start(ctx); err != nil {
			_ = d.lock.Unlock()
			return err
		}
	}
	d.comps.Scheduler.Start()
	d.running = true
	d.logger.Info("daemon started",
		logging.Int("pid", os.Getpid()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the scheduler and the control API and releases the lock. A
// cycle already in flight finishes first.
func (d *Daemon) Stop() {
	if !d.running {
		return
	}
	d.comps.Scheduler.Stop()
	if d.server != nil {
		d.server.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("lock release failed", logging.Error(err))
	}
	d.running = false
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store and library.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if d.comps.Library != nil {
		if err := d.comps.Library.Close(); err != nil {
			firstErr = err
		}
	}
	if err := d.comps.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
