// Entropoold collects remote hardware entropy and serves unbiased random
// values and computation jobs over an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/base"
	"github.com/safing/entropool/entropy"
	"github.com/safing/entropool/info"
	"github.com/safing/entropool/run"

	// Include modules.
	_ "github.com/safing/entropool/dispatch"
	_ "github.com/safing/entropool/metrics"
	_ "github.com/safing/entropool/sampling"
)

// environment holds settings that may be given as environment variables.
// Flags take precedence.
type environment struct {
	DataDir      string `env:"ENTROPOOL_DATA"`
	APIAddress   string `env:"ENTROPOOL_API_ADDRESS"`
	RemoteAPIKey string `env:"ENTROPOOL_REMOTE_API_KEY"`
}

func main() {
	info.Set("Entropool", "0.1.0", "GPLv3")

	var cfg environment
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse environment: %s\n", err)
		os.Exit(1)
	}
	if cfg.DataDir != "" {
		base.SetDataDir(cfg.DataDir)
	}
	if cfg.APIAddress != "" {
		api.SetDefaultAPIListenAddress(cfg.APIAddress)
	}
	if cfg.RemoteAPIKey != "" {
		entropy.SetDefaultRemoteAPIKey(cfg.RemoteAPIKey)
	}

	os.Exit(run.Run())
}
