package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type GormStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *GormStore
}

func (s *GormStoreSuite) SetupTest() {
	s.ctx = context.Background()
	// One connection keeps the in-memory database alive for the whole test.
	store, err := OpenGormStore(s.ctx, DialectSQLite, "file::memory:", WithMaxOpenConns(1))
	s.Require().NoError(err)
	s.store = store
}

func (s *GormStoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *GormStoreSuite) TestRosterOrderingAndFilter() {
	for _, p := range []model.PlayerProfile{
		{ID: 7, Name: "Gil", Position: "Defender", Age: 31, TeamID: teamPtr(1)},
		{ID: 2, Name: "Bea", Position: "Forward", Age: 17, TeamID: teamPtr(2)},
		{ID: 5, Name: "Eve", Position: "Midfielder", Age: 24, TeamID: teamPtr(1)},
	} {
		s.Require().NoError(s.store.UpsertPlayer(s.ctx, p))
	}

	all, err := s.store.GetRoster(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]int64{2, 5, 7}, []int64{all[0].ID, all[1].ID, all[2].ID})
	s.Equal("Forward", all[0].Position)
	s.Equal(17, all[0].Age)

	team, err := s.store.GetRoster(s.ctx, teamPtr(1))
	s.Require().NoError(err)
	s.Len(team, 2)
	s.Equal(int64(5), team[0].ID)
}

func (s *GormStoreSuite) TestUpsertReplacesProfile() {
	s.Require().NoError(s.store.UpsertPlayer(s.ctx, model.PlayerProfile{ID: 1, Name: "Old", Age: 20}))
	s.Require().NoError(s.store.UpsertPlayer(s.ctx, model.PlayerProfile{ID: 1, Name: "New", Age: 21}))

	p, err := s.store.GetPlayer(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("New", p.Name)
	s.Equal(21, p.Age)

	players, _, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, players)

	_, err = s.store.GetPlayer(s.ctx, 404)
	s.ErrorIs(err, ErrNotFound)
}

func (s *GormStoreSuite) TestSessionsSinceAndIdempotentAppend() {
	s.Require().NoError(s.store.UpsertPlayer(s.ctx, model.PlayerProfile{ID: 1}))

	day := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, offset := range []int{4, 0, 2} {
		s.Require().NoError(s.store.AppendSession(s.ctx, model.SessionMetric{
			SessionID:       []string{"a", "b", "c"}[i],
			PlayerID:        1,
			Date:            day.AddDate(0, 0, offset),
			DurationMinutes: 90,
			DistanceKM:      8.5,
			AvgHeartRate:    150,
			MaxHeartRate:    182,
			SprintCount:     21,
		}))
	}
	// Replaying a session id is a no-op.
	s.Require().NoError(s.store.AppendSession(s.ctx, model.SessionMetric{SessionID: "a", PlayerID: 1, Date: day}))

	got, err := s.store.GetSessions(s.ctx, 1, day.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("c", got[0].SessionID)
	s.Equal("a", got[1].SessionID)
	s.Equal(21, got[0].SprintCount)
	s.InDelta(8.5, got[0].DistanceKM, 1e-9)
	s.True(got[0].Date.Equal(day.AddDate(0, 0, 2)))

	_, sessions, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, sessions)
}

func (s *GormStoreSuite) TestAppendRejectsUnknownPlayerAndMissingID() {
	err := s.store.AppendSession(s.ctx, model.SessionMetric{SessionID: "z", PlayerID: 9})
	s.ErrorIs(err, ErrNotFound)

	err = s.store.AppendSession(s.ctx, model.SessionMetric{PlayerID: 9})
	s.ErrorIs(err, ErrInvalidRecord)
}

func TestGormStoreSuite(t *testing.T) {
	suite.Run(t, new(GormStoreSuite))
}

func TestOpenGormStoreUnknownDialect(t *testing.T) {
	_, err := OpenGormStore(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dialect")
}
