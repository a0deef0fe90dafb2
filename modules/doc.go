// Package modules ties the moving parts of the entropy service together.
//
// Modules are started in a multi-stage process and may depend on other
// modules:
// - Go's init(): register flags
// - prep: check flags, register config options
// - start: start actual work, access config
// - stop: gracefully shut down
//
// Workers are functions run by a module while catching panics and reporting
// them. Service workers are restarted with backoff when they fail.
package modules
