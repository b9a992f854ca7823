package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pitchload/internal/adapters/repository"
	"github.com/okian/pitchload/internal/domain/insights"
	"github.com/okian/pitchload/internal/domain/load"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/internal/domain/risk"
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

// playerData is one roster entry whose sessions were fetched.
type playerData struct {
	player   model.PlayerProfile
	sessions []model.SessionMetric
}

// TrainingLoad analyzes every player of teamID (all players when nil) over
// the trailing days, sorted by load score descending.
func (s *Service) TrainingLoad(ctx context.Context, teamID *int64, days int) (types.TrainingLoadReport, error) {
	start := time.Now()
	w, err := s.window(days)
	if err != nil {
		return types.TrainingLoadReport{}, err
	}

	data, rosterSize, err := s.gather(ctx, teamID, w)
	if err != nil {
		return types.TrainingLoadReport{}, err
	}

	results := make([]types.LoadResult, 0, len(data))
	for _, d := range data {
		results = append(results, s.loads.Analyze(ctx, d.player, d.sessions, w))
	}
	load.Sort(results)

	metrics.RecordAnalysis("training_load", msSince(start))
	return types.TrainingLoadReport{
		PeriodDays:     w.Days,
		TotalPlayers:   rosterSize,
		PlayersOmitted: rosterSize - len(data),
		Players:        results,
	}, nil
}

// InjuryRisk assesses every player of teamID over the risk window, sorted for
// triage.
func (s *Service) InjuryRisk(ctx context.Context, teamID *int64) (types.InjuryRiskReport, error) {
	start := time.Now()
	w, err := s.window(s.riskDays)
	if err != nil {
		return types.InjuryRiskReport{}, err
	}

	data, rosterSize, err := s.gather(ctx, teamID, w)
	if err != nil {
		return types.InjuryRiskReport{}, err
	}

	results := make([]types.RiskResult, 0, len(data))
	for _, d := range data {
		r := s.risks.Analyze(ctx, d.player, d.sessions, w)
		metrics.RecordRiskLevel(string(r.RiskLevel))
		results = append(results, r)
	}
	risk.Sort(results)

	report := types.NewInjuryRiskReport(w.Days, rosterSize-len(data), results)
	report.TotalPlayers = rosterSize

	metrics.RecordAnalysis("injury_risk", msSince(start))
	return report, nil
}

// Insights runs both analyzers over one fetch per player and buckets the
// results into recovery, prevention and optimization lists.
func (s *Service) Insights(ctx context.Context, teamID *int64, days int) (types.InsightsBundle, error) {
	start := time.Now()
	w, err := s.window(days)
	if err != nil {
		return types.InsightsBundle{}, err
	}

	data, rosterSize, err := s.gather(ctx, teamID, w)
	if err != nil {
		return types.InsightsBundle{}, err
	}

	entries := make([]insights.Entry, 0, len(data))
	for _, d := range data {
		entries = append(entries, insights.Entry{
			Load: s.loads.Analyze(ctx, d.player, d.sessions, w),
			Risk: s.risks.Analyze(ctx, d.player, d.sessions, w),
		})
	}

	metrics.RecordAnalysis("insights", msSince(start))
	return insights.Build(entries, rosterSize, w.Days), nil
}

func (s *Service) window(days int) (model.Window, error) {
	if days > s.maxDays {
		return model.Window{}, fmt.Errorf("%w: days must be at most %d, got %d", ErrInvalidWindow, s.maxDays, days)
	}
	return model.NewWindow(s.now(), days)
}

// gather loads the roster and then each player's sessions with bounded
// concurrency. Players whose fetch fails are omitted; a roster failure or
// caller cancellation fails the whole request. Results keep roster order.
func (s *Service) gather(ctx context.Context, teamID *int64, w model.Window) ([]playerData, int, error) {
	roster, err := s.roster(ctx, teamID)
	if err != nil {
		return nil, 0, err
	}
	metrics.UpdateRosterSize(len(roster))

	slots := make([]*playerData, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range roster {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sessions, err := s.sessions(gctx, p.ID, w.Start)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.omit(ctx, p, err)
				return nil
			}
			slots[i] = &playerData{player: p, sessions: sessions}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]playerData, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, len(roster), nil
}

func (s *Service) roster(ctx context.Context, teamID *int64) ([]model.PlayerProfile, error) {
	rctx, cancel := context.WithTimeout(ctx, s.repositoryTimeout)
	defer cancel()

	roster, err := s.reader.GetRoster(rctx, teamID)
	if err == nil {
		return roster, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	s.logger.Error(ctx, "roster fetch failed", logger.Error(err))
	metrics.RecordErrorByComponent("service", "roster_unavailable")
	return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
}

func (s *Service) sessions(ctx context.Context, playerID int64, since time.Time) ([]model.SessionMetric, error) {
	sctx, cancel := context.WithTimeout(ctx, s.repositoryTimeout)
	defer cancel()
	return s.reader.GetSessions(sctx, playerID, since)
}

func (s *Service) omit(ctx context.Context, p model.PlayerProfile, err error) {
	reason := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, repository.ErrUnavailable):
		reason = "unavailable"
	}
	metrics.RecordPlayerOmitted(reason)
	s.logger.Warn(ctx, "player omitted from analysis",
		logger.Int64("player_id", p.ID),
		logger.String("reason", reason),
		logger.Error(err),
	)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
