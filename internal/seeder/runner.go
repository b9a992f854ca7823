// Package seeder populates a running analytics service with a demo roster
// and session history, then reads the analytics back and checks them.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
)

const pollInterval = 200 * time.Millisecond

// ErrVerification is returned when the analytics read back are inconsistent.
var ErrVerification = errors.New("verification failed")

// Reports bundles the three analytics responses.
type Reports struct {
	Load     types.TrainingLoadReport
	Risk     types.InjuryRiskReport
	Insights types.InsightsBundle
}

// Run executes the seeding pipeline against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	log := logger.Named("seeder")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int64("teamID", cfg.TeamID),
		logger.Int("players", cfg.Players),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	before, err := checkService(ctx, client)
	if err != nil {
		return stats, fmt.Errorf("service check failed: %w", err)
	}

	gen := NewGenerator(cfg, time.Now())
	players := gen.Players()
	sessions := gen.Sessions(players)
	stats.SessionsGenerated = len(sessions)

	if err := registerPlayers(ctx, client, cfg, players, stats); err != nil {
		return stats, fmt.Errorf("player registration failed: %w", err)
	}
	submitSessions(ctx, client, cfg, sessions, stats)
	log.Info(ctx, "sessions submitted",
		logger.Int("accepted", stats.SessionsAccepted),
		logger.Int("duplicate", stats.SessionsDuplicate),
		logger.Int("failed", stats.SessionsFailed))

	if err := waitForIngestion(ctx, client, cfg.WaitTimeout, before.Sessions+stats.SessionsAccepted); err != nil {
		return stats, fmt.Errorf("ingestion did not settle: %w", err)
	}

	reports, err := fetchReports(ctx, client, cfg)
	if err != nil {
		return stats, fmt.Errorf("analytics retrieval failed: %w", err)
	}

	stats.Violations = Verify(reports, cfg.Players)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, reports, stats)

	if len(stats.Violations) > 0 {
		for _, v := range stats.Violations {
			log.Error(ctx, "verification violation", logger.String("detail", v))
		}
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, len(stats.Violations))
	}
	log.Info(ctx, "seed run completed")
	return stats, nil
}

func checkService(ctx context.Context, client *Client) (serviceStats, error) {
	var s serviceStats
	if err := client.Get(ctx, "/stats", &s); err != nil {
		return s, err
	}
	if !s.Started {
		return s, errors.New("service is not accepting sessions")
	}
	return s, nil
}

func registerPlayers(ctx context.Context, client *Client, cfg Config, players []Player, stats *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	var registered atomic.Int64
	for _, p := range players {
		g.Go(func() error {
			if _, err := client.Post(gctx, "/players", p, nil, http.StatusCreated); err != nil {
				return fmt.Errorf("player %d: %w", p.ID, err)
			}
			registered.Add(1)
			return nil
		})
	}
	err := g.Wait()
	stats.PlayersRegistered = int(registered.Load())
	return err
}

// submitSessions posts every session. Individual failures are counted, not
// fatal.
func submitSessions(ctx context.Context, client *Client, cfg Config, sessions []Session, stats *Stats) {
	log := logger.Named("seeder")
	var g errgroup.Group
	g.SetLimit(max(1, cfg.Workers))
	var accepted, duplicate, failed atomic.Int64
	for _, s := range sessions {
		g.Go(func() error {
			var ack AckResponse
			status, err := client.Post(ctx, "/sessions", s, &ack, http.StatusAccepted, http.StatusOK)
			switch {
			case err != nil:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(ctx, "session rejected", logger.String("sessionID", s.SessionID), logger.Error(err))
				}
			case status == http.StatusOK || ack.Duplicate:
				duplicate.Add(1)
			default:
				accepted.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	stats.SessionsAccepted = int(accepted.Load())
	stats.SessionsDuplicate = int(duplicate.Load())
	stats.SessionsFailed = int(failed.Load())
}

// waitForIngestion polls /stats until the store holds at least want sessions.
func waitForIngestion(ctx context.Context, client *Client, timeout time.Duration, want int) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var s serviceStats
		if err := client.Get(ctx, "/stats", &s); err == nil && s.Sessions >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func fetchReports(ctx context.Context, client *Client, cfg Config) (Reports, error) {
	var r Reports
	query := "?team_id=" + strconv.FormatInt(cfg.TeamID, 10)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Get(gctx, "/analytics/training-load"+query+"&days="+strconv.Itoa(cfg.Days), &r.Load)
	})
	g.Go(func() error {
		return client.Get(gctx, "/analytics/injury-risk"+query, &r.Risk)
	})
	g.Go(func() error {
		return client.Get(gctx, "/analytics/insights"+query+"&days="+strconv.Itoa(cfg.Days), &r.Insights)
	})
	return r, g.Wait()
}

func displayFinalStats(ctx context.Context, log logger.Logger, r Reports, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.SessionsAccepted+stats.SessionsDuplicate) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("sessionsGenerated", stats.SessionsGenerated),
		logger.Int("sessionsAccepted", stats.SessionsAccepted),
		logger.Int("sessionsDuplicate", stats.SessionsDuplicate),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("highRisk", r.Risk.HighRiskCount),
		logger.Int("mediumRisk", r.Risk.MediumRiskCount),
		logger.String("overallRisk", string(r.Risk.OverallRisk)),
		logger.Int("needingRecovery", r.Insights.Summary.PlayersNeedingRecovery),
		logger.Duration("duration", stats.Duration),
		logger.Float64("sessionsPerSecond", perSecond))
}
