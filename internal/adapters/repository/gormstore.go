package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/logger"
)

// Supported SQL dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

type playerRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Name      string
	Position  string
	Age       int
	TeamID    *int64 `gorm:"index"`
	PhotoURL  string
	UpdatedAt time.Time
}

func (playerRow) TableName() string { return "players" }

type sessionRow struct {
	SessionID       string    `gorm:"primaryKey;size:64"`
	PlayerID        int64     `gorm:"index:idx_sessions_player_date,priority:1;not null"`
	Date            time.Time `gorm:"index:idx_sessions_player_date,priority:2;not null"`
	DurationMinutes float64
	DistanceKM      float64
	AvgHeartRate    float64
	MaxHeartRate    float64
	SprintCount     int
	CreatedAt       time.Time
}

func (sessionRow) TableName() string { return "player_sessions" }

// GormStore is a Store backed by SQLite or PostgreSQL through gorm.
type GormStore struct {
	db           *gorm.DB
	maxOpenConns int
	log          logger.Logger
}

// OpenGormStore connects to the given dialect, migrates the two tables and
// returns the store.
func OpenGormStore(ctx context.Context, dialect, dsn string, opts ...GormOption) (*GormStore, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}
	return NewGormStore(ctx, db, opts...)
}

// NewGormStore wraps an open gorm handle and migrates the schema.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...GormOption) (*GormStore, error) {
	s := &GormStore{db: db, maxOpenConns: 16}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("gorm_store")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(max(1, s.maxOpenConns/2))
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&playerRow{}, &sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.log.Info(ctx, "sql repository ready", logger.String("dialect", db.Dialector.Name()))
	return s, nil
}

func (s *GormStore) GetSessions(ctx context.Context, playerID int64, since time.Time) ([]model.SessionMetric, error) {
	defer observe("get_sessions", time.Now())

	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND date >= ?", playerID, since).
		Order("date ASC").Order("session_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.unavailable("get_sessions", err)
	}
	out := make([]model.SessionMetric, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *GormStore) GetRoster(ctx context.Context, teamID *int64) ([]model.PlayerProfile, error) {
	defer observe("get_roster", time.Now())

	q := s.db.WithContext(ctx).Order("id ASC")
	if teamID != nil {
		q = q.Where("team_id = ?", *teamID)
	}
	var rows []playerRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, s.unavailable("get_roster", err)
	}
	out := make([]model.PlayerProfile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *GormStore) GetPlayer(ctx context.Context, playerID int64) (model.PlayerProfile, error) {
	defer observe("get_player", time.Now())

	var row playerRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", playerID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.PlayerProfile{}, fmt.Errorf("%w: %d", ErrNotFound, playerID)
	case err != nil:
		return model.PlayerProfile{}, s.unavailable("get_player", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) UpsertPlayer(ctx context.Context, p model.PlayerProfile) error {
	defer observe("upsert_player", time.Now())
	if p.ID <= 0 {
		return fmt.Errorf("%w: player id must be positive", ErrInvalidRecord)
	}

	row := playerFromModel(p)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "position", "age", "team_id", "photo_url", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return s.unavailable("upsert_player", err)
	}
	return nil
}

func (s *GormStore) AppendSession(ctx context.Context, m model.SessionMetric) error {
	defer observe("append_session", time.Now())
	if m.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRecord)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&playerRow{}).Where("id = ?", m.PlayerID).Count(&n).Error; err != nil {
			return s.unavailable("append_session", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, m.PlayerID)
		}
		row := sessionFromModel(m)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return s.unavailable("append_session", err)
		}
		return nil
	})
}

func (s *GormStore) Count(ctx context.Context) (int, int, error) {
	var players, sessions int64
	if err := s.db.WithContext(ctx).Model(&playerRow{}).Count(&players).Error; err != nil {
		return 0, 0, s.unavailable("count", err)
	}
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).Count(&sessions).Error; err != nil {
		return 0, 0, s.unavailable("count", err)
	}
	return int(players), int(sessions), nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func (r playerRow) toModel() model.PlayerProfile {
	return model.PlayerProfile{
		ID:       r.ID,
		Name:     r.Name,
		Position: r.Position,
		Age:      r.Age,
		TeamID:   r.TeamID,
		PhotoURL: r.PhotoURL,
	}
}

func playerFromModel(p model.PlayerProfile) playerRow {
	return playerRow{
		ID:       p.ID,
		Name:     p.Name,
		Position: p.Position,
		Age:      p.Age,
		TeamID:   p.TeamID,
		PhotoURL: p.PhotoURL,
	}
}

func (r sessionRow) toModel() model.SessionMetric {
	return model.SessionMetric{
		SessionID:       r.SessionID,
		PlayerID:        r.PlayerID,
		Date:            r.Date.UTC(),
		DurationMinutes: r.DurationMinutes,
		DistanceKM:      r.DistanceKM,
		AvgHeartRate:    r.AvgHeartRate,
		MaxHeartRate:    r.MaxHeartRate,
		SprintCount:     r.SprintCount,
	}
}

func sessionFromModel(m model.SessionMetric) sessionRow {
	return sessionRow{
		SessionID:       m.SessionID,
		PlayerID:        m.PlayerID,
		Date:            m.Date.UTC(),
		DurationMinutes: m.DurationMinutes,
		DistanceKM:      m.DistanceKM,
		AvgHeartRate:    m.AvgHeartRate,
		MaxHeartRate:    m.MaxHeartRate,
		SprintCount:     m.SprintCount,
	}
}
