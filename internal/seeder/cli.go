package seeder

import (
	"fmt"
	"os"

	"github.com/okian/pitchload/pkg/logger"
)

// SetupLogging initialises the text logger on stdout.
func SetupLogging(verbose bool) error {
	if err := logger.InitWith(os.Stdout, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`Pitchload Demo Seeder
=====================

Registers a demo roster, submits a synthetic session history, waits for
ingestion and checks the analytics the service returns.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -team int
        Team id the roster is registered under (default 1)
  -players int
        Number of players to register (default 20)
  -days int
        Sessions are spread over this many trailing days (default 14)
  -workers int
        Number of concurrent submitters (default 8)
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for ingestion (default 30s)
  -seed uint
        Generator seed; reruns with the same seed are deduplicated (default 1)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  go run ./cmd/seed
  go run ./cmd/seed -players 40 -days 28 -url http://localhost:8080
`)
}
