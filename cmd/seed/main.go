package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/pitchload/internal/seeder"
)

const runTimeout = 5 * time.Minute

func main() {
	d := seeder.DefaultConfig()
	var (
		baseURL = flag.String("url", d.BaseURL, "Base URL of the service")
		teamID  = flag.Int64("team", d.TeamID, "Team id the roster is registered under")
		players = flag.Int("players", d.Players, "Number of players to register")
		days    = flag.Int("days", d.Days, "Sessions are spread over this many trailing days")
		workers = flag.Int("workers", d.Workers, "Number of concurrent submitters")
		timeout = flag.Duration("timeout", d.Timeout, "HTTP request timeout")
		wait    = flag.Duration("wait", d.WaitTimeout, "How long to wait for ingestion")
		seed    = flag.Uint64("seed", d.Seed, "Generator seed")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}
	if err := seeder.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cfg := d
	cfg.BaseURL = *baseURL
	cfg.TeamID = *teamID
	cfg.Players = *players
	cfg.Days = *days
	cfg.Workers = *workers
	cfg.Timeout = *timeout
	cfg.WaitTimeout = *wait
	cfg.Seed = *seed
	cfg.Verbose = *verbose

	if _, err := seeder.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
		if errors.Is(err, seeder.ErrVerification) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
