package api

import (
	"github.com/safing/entropool/modules"
)

var module *modules.Module

func init() {
	module = modules.Register("api", prep, start, stop, "config")
}

func prep() error {
	if err := registerConfig(); err != nil {
		return err
	}

	if err := registerMetaEndpoints(); err != nil {
		return err
	}

	if err := registerDebugEndpoints(); err != nil {
		return err
	}

	return registerConfigEndpoints()
}

func start() error {
	logFlagOverrides()
	startServer()
	return nil
}

func stop() error {
	return stopServer()
}
