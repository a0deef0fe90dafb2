package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/entropy"
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/modules"
)

const pruneInterval = time.Minute

var (
	module *modules.Module

	defaultDispatcher atomic.Pointer[Dispatcher]

	errNotReady = errors.New("dispatcher is not ready")
)

func init() {
	module = modules.Register("dispatch", prep, start, stop, "entropy", "api")
}

func prep() error {
	api.RegisterErrorStatus(ErrInvalidReference, http.StatusNotFound)
	api.RegisterErrorStatus(ErrInvalidCoordinates, http.StatusBadRequest)
	api.RegisterErrorStatus(ErrUnknownJob, http.StatusNotFound)
	api.RegisterErrorStatus(ErrNotQueued, http.StatusConflict)
	api.RegisterErrorStatus(ErrClosed, http.StatusServiceUnavailable)
	api.RegisterErrorStatus(errNotReady, http.StatusServiceUnavailable)

	if err := registerConfig(); err != nil {
		return err
	}
	if err := registerMetrics(); err != nil {
		return err
	}
	return registerAPIEndpoints()
}

func start() error {
	pool := entropy.DefaultPool()
	if pool == nil {
		return errors.New("entropy pool is not available")
	}

	var engine Engine = ScatterEngine
	if path := enginePath(); path != "" {
		engine = NewProcessEngine(path)
		log.Infof("dispatch: using computation engine at %s", path)
	}

	d := NewDispatcher(pool.Store(), engine, Options{
		MaxConcurrent: int(maxConcurrentJobs()),
		JobTimeout:    time.Duration(jobTimeout()) * time.Second,
		Retention:     time.Duration(jobRetention()) * time.Second,
	})
	defaultDispatcher.Store(d)

	module.StartServiceWorker("job pruner", 0, func(ctx context.Context) error {
		return pruneJobs(ctx, d)
	})
	return nil
}

func pruneJobs(ctx context.Context, d *Dispatcher) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Prune()
		}
	}
}

func stop() error {
	if d := defaultDispatcher.Swap(nil); d != nil {
		d.Close()
	}
	return nil
}

// DefaultDispatcher returns the dispatcher of the running module.
func DefaultDispatcher() *Dispatcher {
	return defaultDispatcher.Load()
}
