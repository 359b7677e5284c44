// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName        = errors.New("invalid application name")
	ErrInvalidEnvironment    = errors.New("invalid environment")
	ErrInvalidLogLevel       = errors.New("invalid log level")
	ErrInvalidAgentQueueSize = errors.New("invalid agent queue size")
	ErrInvalidChainCapacity  = errors.New("invalid chain capacity")
	ErrInvalidChainStorage   = errors.New("invalid chain storage mode")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigParseError   = errors.New("configuration parse error")
	ErrConfigWatchError   = errors.New("configuration watch error")
)
