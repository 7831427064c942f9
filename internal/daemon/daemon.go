package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"signalwatch/internal/api"
	"signalwatch/internal/config"
	"signalwatch/internal/digest"
	"signalwatch/internal/logging"
	"signalwatch/internal/notifications"
	"signalwatch/internal/pipeline"
	"signalwatch/internal/store"
)

// Daemon coordinates scheduled runs, digest generation, and the API server,
// and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	pipeline *pipeline.Pipeline
	digests  *digest.Builder
	notifier notifications.Service
	apiSrv   *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// LockFile returns the instance lock location for the given config. Other
// processes check it to detect a running daemon.
func LockFile(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "signalwatchd.lock")
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, p *pipeline.Pipeline, digests *digest.Builder, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || p == nil || digests == nil {
		return nil, errors.New("daemon requires config, store, pipeline, and digest builder")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := LockFile(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    st,
		pipeline: p,
		digests:  digests,
		notifier: notifier,
		apiSrv:   api.NewServer(cfg, st, p, digests, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the background loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another signalwatch daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Runs interrupted by a previous crash stay visible as aborted.
	staleCutoff := time.Now().UTC().Add(-time.Duration(d.cfg.Workflow.RunTimeoutMinutes) * 2 * time.Minute)
	if swept, err := d.store.SweepStaleRuns(runCtx, staleCutoff); err != nil {
		d.logger.Warn("failed to sweep stale runs", logging.Error(err))
	} else if swept > 0 {
		d.logger.Info("swept stale runs from a previous process", logging.Int64("count", swept))
	}

	if d.apiSrv != nil {
		if err := d.apiSrv.Start(runCtx); err != nil {
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.wg.Add(2)
	go d.pollLoop(runCtx)
	go d.digestLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("signalwatch daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop terminates background loops and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.apiSrv != nil {
		d.apiSrv.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("signalwatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr reports the bound API address once started.
func (d *Daemon) APIAddr() string {
	if d.apiSrv == nil {
		return ""
	}
	return d.apiSrv.Addr()
}

// LockPath reports the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

func (d *Daemon) pollLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Workflow.PollIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	// First poll happens immediately so a restart does not wait a full
	// interval to catch up.
	d.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	run, err := d.pipeline.Run(ctx, store.TriggerScheduled)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) || errors.Is(err, context.Canceled) {
			return
		}
		d.logger.Error("scheduled run failed", logging.Error(err))
		if notifyErr := d.notifier.NotifyError(ctx, err, "scheduled run"); notifyErr != nil {
			d.logger.Debug("error notification failed", logging.Error(notifyErr))
		}
		return
	}
	_ = run
}

func (d *Daemon) digestLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		next := nextDigestTime(time.Now(), d.cfg.Workflow.DigestHour)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		d.buildDigest(ctx, next)
	}
}

func (d *Daemon) buildDigest(ctx context.Context, at time.Time) {
	built, err := d.digests.Build(ctx, at)
	if err != nil {
		d.logger.Error("digest build failed", logging.Error(err))
		if notifyErr := d.notifier.NotifyError(ctx, err, "digest"); notifyErr != nil {
			d.logger.Debug("error notification failed", logging.Error(notifyErr))
		}
		return
	}
	if err := d.notifier.NotifyDigestWritten(ctx, built.Date, built.VideoCount); err != nil {
		d.logger.Warn("digest notification failed", logging.Error(err))
	}
}

// nextDigestTime returns the next occurrence of the configured digest hour
// strictly after now.
func nextDigestTime(now time.Time, hour int) time.Time {
	if hour < 0 || hour > 23 {
		hour = 6
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
