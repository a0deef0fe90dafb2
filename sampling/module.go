package sampling

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/config"
	"github.com/safing/entropool/entropy"
	"github.com/safing/entropool/modules"
	"github.com/safing/entropool/rng"
)

// Configuration Keys.
const (
	CfgHexAttemptsKey   = "sampling/hex_attempts"
	CfgBatchCooldownKey = "sampling/batch_cooldown"
)

var (
	module *modules.Module

	hexAttempts   config.IntOption
	batchCooldown config.IntOption

	defaultEngine atomic.Pointer[Engine]
	localEngine   atomic.Pointer[Engine]

	errNotReady = errors.New("sampling engine is not ready")
)

func init() {
	module = modules.Register("sampling", prep, start, stop, "entropy", "random", "api")
}

func prep() error {
	api.RegisterErrorStatus(ErrInvalidRange, http.StatusBadRequest)
	api.RegisterErrorStatus(errNotReady, http.StatusServiceUnavailable)

	err := config.Register(&config.Option{
		Name:            "Hex Attempts",
		Key:             CfgHexAttemptsKey,
		Description:     "How often fetching a hex string is attempted before giving up.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		DefaultValue:    DefaultHexAttempts,
		ValidationRegex: "^[1-9][0-9]*$",
	})
	if err != nil {
		return err
	}
	hexAttempts = config.Concurrent.GetAsInt(CfgHexAttemptsKey, DefaultHexAttempts)

	err = config.Register(&config.Option{
		Name:            "Batch Cool-Down",
		Key:             CfgBatchCooldownKey,
		Description:     "Pause between fetches when collecting entropy in batch mode, in seconds.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		DefaultValue:    int64(DefaultBatchCooldown.Seconds()),
		ValidationRegex: "^[0-9]+$",
	})
	if err != nil {
		return err
	}
	batchCooldown = config.Concurrent.GetAsInt(CfgBatchCooldownKey, int64(DefaultBatchCooldown.Seconds()))

	return registerAPIEndpoints()
}

func start() error {
	opts := Options{
		HexAttempts:   int(hexAttempts()),
		BatchCooldown: time.Duration(batchCooldown()) * time.Second,
	}

	if pool := entropy.DefaultPool(); pool != nil {
		defaultEngine.Store(NewEngine(pool, opts))
	}
	localEngine.Store(NewEngine(NewReaderSource(rng.Reader), opts))
	return nil
}

func stop() error {
	defaultEngine.Store(nil)
	localEngine.Store(nil)
	return nil
}

// DefaultEngine returns the engine drawing from the remote entropy pool.
// It is nil until the module is started.
func DefaultEngine() *Engine {
	return defaultEngine.Load()
}

// LocalEngine returns the engine drawing from the local generator.
// It is nil until the module is started.
func LocalEngine() *Engine {
	return localEngine.Load()
}
