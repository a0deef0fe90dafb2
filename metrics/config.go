package metrics

import (
	"flag"
	"os"
	"strings"

	"github.com/safing/entropool/config"
)

// Configuration Keys.
const (
	CfgOptionInstanceKey = "metrics/instance"
	CfgOptionPushKey     = "metrics/push"
)

var (
	instanceOption config.StringOption
	pushOption     config.StringOption

	instanceFlag string
	pushFlag     string
)

func init() {
	flag.StringVar(&pushFlag, "push-metrics", "", "set default URL to push prometheus metrics to")
	flag.StringVar(&instanceFlag, "metrics-instance", hostInstanceLabel(), "set the default global instance label")
}

// hostInstanceLabel derives an instance label from the hostname, if the
// hostname is usable as one.
func hostInstanceLabel() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	hostname = strings.ReplaceAll(hostname, "-", "")
	if !prometheusFormat.MatchString(hostname) {
		return ""
	}
	return hostname
}

func prepConfig() error {
	for _, opt := range []*config.Option{
		{
			Name:            "Metrics Instance Name",
			Key:             CfgOptionInstanceKey,
			Description:     "Instance label added to pushed metrics.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    instanceFlag,
			RequiresRestart: true,
			ValidationRegex: "^(" + prometheusBaseFormt + ")?$",
		},
		{
			Name:            "Push Prometheus Metrics",
			Key:             CfgOptionPushKey,
			Description:     "URL to push pool, sampling and job metrics to in the prometheus format. Leave empty to disable pushing.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    pushFlag,
			RequiresRestart: true,
		},
	} {
		if err := config.Register(opt); err != nil {
			return err
		}
	}

	instanceOption = config.Concurrent.GetAsString(CfgOptionInstanceKey, instanceFlag)
	pushOption = config.Concurrent.GetAsString(CfgOptionPushKey, pushFlag)
	return nil
}
