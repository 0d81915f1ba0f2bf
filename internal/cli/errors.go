package cli

import "errors"

// Common CLI errors
var (
	// ErrFixturesFailed indicates at least one fixture did not pass
	ErrFixturesFailed = errors.New("fixtures failed")

	// ErrLoggerNotConfigured indicates a command ran without the root pre-run hook
	ErrLoggerNotConfigured = errors.New("logger not configured")
)
