// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidName           = errors.New("invalid runtime name")
	ErrInvalidEnvironment    = errors.New("invalid environment")
	ErrInvalidLogLevel       = errors.New("invalid log level")
	ErrInvalidHeapSize       = errors.New("invalid heap size")
	ErrInvalidGCTriggerRatio = errors.New("invalid gc trigger ratio")
	ErrInvalidMaxActors      = errors.New("invalid max actors")
	ErrInvalidMailboxSize    = errors.New("invalid mailbox size")
	ErrInvalidWorkerCount    = errors.New("invalid worker count")
	ErrInvalidSchedulerMode  = errors.New("invalid scheduler mode")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrConfigValidateError = errors.New("configuration validation error")
	ErrEnvironmentVarError = errors.New("environment variable error")
	ErrConfigWatchError    = errors.New("configuration watch error")
)
