//go:build mage

// Magefile for go-cligolden tasks
package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/magefile/mage/sh"
)

const (
	binaryPath = "bin/go-cligolden"

	// configEnv selects the fixture config run by Fixtures
	configEnv     = "GOLDENTREE_CONFIG"
	defaultConfig = "goldentree.yaml"
)

// Commander interface allows for dependency injection in tests
type Commander interface {
	RunV(cmd string, args ...string) error
}

// ShCommander wraps sh.RunV for production use
type ShCommander struct{}

// RunV implements Commander interface
func (s ShCommander) RunV(cmd string, args ...string) error {
	return sh.RunV(cmd, args...)
}

// CommanderManager manages the current commander instance
type CommanderManager struct {
	mu        sync.RWMutex
	commander Commander
}

// defaultManager is the package-level manager
var defaultManager = &CommanderManager{commander: ShCommander{}} //nolint:gochecknoglobals // Required for mage pattern

// setCommander allows setting the commander for testing
func setCommander(c Commander) {
	defaultManager.mu.Lock()
	defer defaultManager.mu.Unlock()
	defaultManager.commander = c
}

// getCommander returns the current commander
func getCommander() Commander {
	defaultManager.mu.RLock()
	defer defaultManager.mu.RUnlock()
	return defaultManager.commander
}

// Build compiles the go-cligolden binary into bin/
func Build() error {
	return getCommander().RunV("go", "build", "-o", binaryPath, "./cmd/go-cligolden")
}

// Fixtures builds the binary and runs every fixture in $GOLDENTREE_CONFIG (default
// goldentree.yaml)
func Fixtures() error {
	if err := Build(); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return getCommander().RunV(binaryPath, "run", "--config", fixturesConfig())
}

func fixturesConfig() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfig
}

// Test runs every test with the race detector; fixture suites start real subprocesses
func Test() error {
	return getCommander().RunV("go", "test", "-race", "-timeout=10m", "./...")
}

// TestQuick runs the unit tests in short mode
func TestQuick() error {
	return getCommander().RunV("go", "test", "-short", "./...")
}

// Bench runs the comparison benchmarks without the regular tests
func Bench() error {
	return getCommander().RunV("go", "test", "-run=^$", "-bench=.", "-benchmem",
		"-benchtime=100ms", "-timeout=20m", "./internal/...")
}

// All runs the tests, then the fixtures
func All() error {
	if err := Test(); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	return Fixtures()
}
