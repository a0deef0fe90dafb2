package entropy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/crypto/hash"
	"github.com/safing/entropool/database/storage"
	"github.com/safing/entropool/dataroot"
	"github.com/safing/entropool/formats/dsd"
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/modules"
	"github.com/safing/entropool/qrng"
	"github.com/safing/entropool/rng"

	// Register storage backends.
	_ "github.com/safing/entropool/database/storage/badger"
	_ "github.com/safing/entropool/database/storage/bbolt"
	_ "github.com/safing/entropool/database/storage/fstree"
	_ "github.com/safing/entropool/database/storage/hashmap"
	_ "github.com/safing/entropool/database/storage/sqlite"
)

const (
	flushInterval               = time.Minute
	maintenanceInterval         = 10 * time.Minute
	thoroughMaintenanceInterval = 24 * time.Hour
)

var (
	module *modules.Module

	defaultPool atomic.Pointer[Pool]
	client      *qrng.Client
	feeder      *rng.Feeder
)

func init() {
	module = modules.Register("entropy", prep, start, stop, "config", "random", "api")
}

func prep() error {
	api.RegisterErrorStatus(ErrSizeOutOfRange, http.StatusBadRequest)
	api.RegisterErrorStatus(hash.ErrInvalidAddress, http.StatusBadRequest)
	api.RegisterErrorStatus(ErrNotFound, http.StatusNotFound)
	api.RegisterErrorStatus(ErrPoolEmpty, http.StatusNotFound)
	api.RegisterErrorStatus(ErrIntegrity, http.StatusInternalServerError)
	api.RegisterErrorStatus(ErrSourceUnavailable, http.StatusBadGateway)
	api.RegisterErrorStatus(ErrTimeout, http.StatusGatewayTimeout)

	if err := registerConfig(); err != nil {
		return err
	}

	if err := registerPoolMetrics(); err != nil {
		return err
	}

	return registerAPIEndpoints()
}

func start() error {
	var err error
	client, err = qrng.NewClient(qrng.Options{
		URL:      remoteURL(),
		Timeout:  time.Duration(remoteTimeout()) * time.Second,
		APIKey:   remoteAPIKey(),
		User:     remoteUser(),
		Password: remotePassword(),
	})
	if err != nil {
		return fmt.Errorf("failed to create remote client: %w", err)
	}

	format, ok := dsd.ParseSerializationFormat(recordFormat())
	if !ok {
		return fmt.Errorf("unknown record format %q", recordFormat())
	}

	// Open storage.
	location := dataroot.Root().ChildDir("entropy", 0o0700)
	if err := location.Ensure(); err != nil {
		return fmt.Errorf("failed to create storage location: %w", err)
	}
	db, err := storage.StartDatabase("entropy", storageType(), location.Path)
	if err != nil {
		return fmt.Errorf("failed to start %s storage: %w", storageType(), err)
	}

	store := NewStore(db, StoreOptions{
		MinRecordSize: int(minRecordSize()),
		MaxRecordSize: int(maxRecordSize()),
		Format:        format,
		CacheSize:     int(cacheSize()),
	})
	pool := NewPool(client, store, PoolOptions{
		MaxUnitsPerRequest:  int(maxUnitsPerRequest()),
		MaxRequestsPerBatch: int(maxRequestsPerBatch()),
		FetchAttempts:       int(fetchAttempts()),
		FlushThreshold:      int(flushThreshold()),
	})

	// Remote entropy also strengthens the local generator.
	feeder = rng.NewFeeder()
	pool.SetOnFetch(func(data []byte) {
		feeder.SupplyEntropyIfNeeded(data, len(data)*8)
	})

	defaultPool.Store(pool)
	log.Infof("entropy: using %s storage at %s", storageType(), location.Path)

	module.StartWorker("verify records", func(ctx context.Context) error {
		checked, corrupted, err := store.VerifyAll(ctx)
		if err != nil {
			return err
		}
		if corrupted > 0 {
			log.Warningf("entropy: %d of %d records failed the integrity check", corrupted, checked)
		} else {
			log.Infof("entropy: verified %d records", checked)
		}
		return nil
	})
	module.StartServiceWorker("pool flusher", 0, func(ctx context.Context) error {
		return flushPool(ctx, pool)
	})
	module.StartServiceWorker("storage maintenance", 0, func(ctx context.Context) error {
		return maintainStore(ctx, store)
	})

	return nil
}

// flushPool retries flushes that failed or were skipped while drawing.
func flushPool(ctx context.Context, pool *Pool) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pool.flush(ctx)
		}
	}
}

func maintainStore(ctx context.Context, store *Store) error {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	lastThorough := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			thorough := time.Since(lastThorough) > thoroughMaintenanceInterval
			if thorough {
				lastThorough = time.Now()
			}
			if err := store.Maintain(ctx, thorough); err != nil && !errors.Is(err, context.Canceled) {
				log.Warningf("entropy: storage maintenance failed: %s", err)
			}
		}
	}
}

func stop() error {
	pool := defaultPool.Swap(nil)
	if feeder != nil {
		feeder.CloseFeeder()
	}
	if client != nil {
		client.Close()
	}
	if pool != nil {
		return pool.Store().Shutdown()
	}
	return nil
}

// DefaultPool returns the process wide entropy pool. It is nil until the
// module is started.
func DefaultPool() *Pool {
	return defaultPool.Load()
}
