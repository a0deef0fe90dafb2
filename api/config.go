package api

import (
	"flag"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/log"
)

// CfgDefaultListenAddressKey is the config key of the API listen address.
const CfgDefaultListenAddressKey = "api/listenAddress"

// listenAddressPattern accepts "ipv4:port" and "[ipv6]:port".
const listenAddressPattern = `^([0-9]{1,3}.[0-9]{1,3}.[0-9]{1,3}.[0-9]{1,3}:[0-9]{1,5}|\[[:0-9A-Fa-f]+\]:[0-9]{1,5})$`

var (
	defaultListenAddress = "127.0.0.1:8117"

	// listenAddressFlag takes precedence over both the config and the default.
	listenAddressFlag   string
	listenAddressConfig config.StringOption
)

func init() {
	flag.StringVar(&listenAddressFlag, "api-address", "", "override api listen address")
}

// SetDefaultAPIListenAddress sets the default listen address for the API.
// It must be called before the modules are prepared.
func SetDefaultAPIListenAddress(address string) {
	defaultListenAddress = address
}

func logFlagOverrides() {
	if listenAddressFlag != "" {
		log.Warningf("api: %s config is being overridden by -api-address flag", CfgDefaultListenAddressKey)
	}
}

func getDefaultListenAddress() string {
	if listenAddressFlag != "" {
		return listenAddressFlag
	}
	return defaultListenAddress
}

func getListenAddress() string {
	if listenAddressFlag == "" && listenAddressConfig != nil {
		return listenAddressConfig()
	}
	return getDefaultListenAddress()
}

func registerConfig() error {
	err := config.Register(&config.Option{
		Name:            "API Address",
		Key:             CfgDefaultListenAddressKey,
		Description:     "IP address and port the HTTP API listens on.",
		OptType:         config.OptTypeString,
		ExpertiseLevel:  config.ExpertiseLevelDeveloper,
		DefaultValue:    getDefaultListenAddress(),
		ValidationRegex: listenAddressPattern,
		RequiresRestart: true,
	})
	if err != nil {
		return err
	}

	listenAddressConfig = config.Concurrent.GetAsString(CfgDefaultListenAddressKey, getDefaultListenAddress())
	return nil
}
