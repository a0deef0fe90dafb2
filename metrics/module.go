package metrics

import (
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/modules"
)

var module *modules.Module

func init() {
	module = modules.Register("metrics", prep, start, nil, "config", "api")
}

func prep() error {
	if err := prepConfig(); err != nil {
		return err
	}

	if err := registerInfoMetric(); err != nil {
		return err
	}

	if err := registerRuntimeMetric(); err != nil {
		return err
	}

	if err := registerHostMetrics(); err != nil {
		return err
	}

	if err := registerLogMetrics(); err != nil {
		return err
	}

	return registerAPI()
}

func start() error {
	module.StartServiceWorker("panic reporter", 0, panicReporter)

	if pushOption() != "" {
		log.Infof("metrics: pushing metrics to %s", pushOption())
		module.StartServiceWorker("metric pusher", 0, metricsWriter)
	}

	return nil
}
