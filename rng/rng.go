// Package rng provides a local Fortuna CSPRNG. It serves as the fallback
// entropy source when the remote service is unreachable or not wanted.
package rng

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aead/serpent"
	"github.com/seehuhn/fortuna"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/modules"
)

var (
	module *modules.Module

	rng      *fortuna.Generator
	rngLock  sync.Mutex
	rngReady = false

	rngCipherOption    config.StringOption
	minFeedEntropy     config.IntOption
	reseedAfterSeconds config.IntOption
	reseedAfterBytes   config.IntOption
)

// Configuration Keys.
const (
	CfgOptionCipherKey             = "random/rng_cipher"
	CfgOptionMinFeedEntropyKey     = "random/min_feed_entropy"
	CfgOptionReseedAfterSecondsKey = "random/reseed_after_seconds"
	CfgOptionReseedAfterBytesKey   = "random/reseed_after_bytes"
)

func init() {
	module = modules.Register("random", prep, Start, nil, "config")
}

func prep() error {
	for _, opt := range []*config.Option{
		{
			Name:            "RNG Cipher",
			Key:             CfgOptionCipherKey,
			Description:     "Block cipher of the local Fortuna generator.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			RequiresRestart: true,
			DefaultValue:    "aes",
			ValidationRegex: "^(aes|serpent)$",
		},
		{
			Name:            "Minimum Feed Entropy",
			Key:             CfgOptionMinFeedEntropyKey,
			Description:     "Entropy in bits a feeder must collect before it reseeds the local generator.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    256,
			ValidationRegex: "^[0-9]{3,5}$",
		},
		{
			Name:            "Reseed Interval",
			Key:             CfgOptionReseedAfterSecondsKey,
			Description:     "Seconds after which the local generator is reseeded from the OS.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    360,
			ValidationRegex: "^[1-9][0-9]{1,5}$",
		},
		{
			Name:            "Reseed Volume",
			Key:             CfgOptionReseedAfterBytesKey,
			Description:     "Bytes read from the local generator after which it is reseeded.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    1000000,
			ValidationRegex: "^[1-9][0-9]{2,9}$",
		},
	} {
		if err := config.Register(opt); err != nil {
			return err
		}
	}

	rngCipherOption = config.Concurrent.GetAsString(CfgOptionCipherKey, "aes")
	minFeedEntropy = config.Concurrent.GetAsInt(CfgOptionMinFeedEntropyKey, 256)
	reseedAfterSeconds = config.Concurrent.GetAsInt(CfgOptionReseedAfterSecondsKey, 360)
	reseedAfterBytes = config.Concurrent.GetAsInt(CfgOptionReseedAfterBytesKey, 1000000)
	return nil
}

func newCipher(key []byte) (cipher.Block, error) {
	switch name := rngCipherOption(); name {
	case "aes":
		return aes.NewCipher(key)
	case "serpent":
		return serpent.NewCipher(key)
	default:
		return nil, fmt.Errorf("unknown or unsupported cipher: %s", name)
	}
}

// Start seeds the generator from the OS and starts the feeders. It is
// called by the modules package, and directly by tests.
func Start() error {
	rngLock.Lock()
	defer rngLock.Unlock()

	if rngReady {
		return nil
	}

	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to get initial seed from os: %w", err)
	}
	rng = fortuna.NewGenerator(newCipher)
	rng.Reseed(seed)
	rngLastFeed = time.Now()
	rngReady = true

	module.StartServiceWorker("os rng feeder", 0, osFeeder)
	module.StartServiceWorker("tick rng feeder", 0, tickFeeder)
	module.StartServiceWorker("full feeder", 0, fullFeeder)
	return nil
}

var errNotReady = errors.New("RNG is not ready yet")
