package seeder

import "time"

// Config holds the seeding run parameters.
type Config struct {
	BaseURL     string        // base URL of the service
	TeamID      int64         // team the demo roster is registered under
	Players     int           // number of players to register
	Days        int           // sessions are spread over this many trailing days
	MinSessions int           // per-player session count lower bound
	MaxSessions int           // per-player session count upper bound
	Workers     int           // concurrent HTTP submitters
	Timeout     time.Duration // per-request timeout
	WaitTimeout time.Duration // how long to wait for ingestion to settle
	Seed        uint64        // generator seed; equal seeds produce equal data
	Verbose     bool
}

// DefaultConfig returns the stock demo configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:9080",
		TeamID:      1,
		Players:     len(demoRoster),
		Days:        14,
		MinSessions: 5,
		MaxSessions: 10,
		Workers:     8,
		Timeout:     10 * time.Second,
		WaitTimeout: 30 * time.Second,
		Seed:        1,
	}
}

// Player is the POST /players body.
type Player struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Age      int    `json:"age"`
	TeamID   *int64 `json:"team_id,omitempty"`
}

// Session is the POST /sessions body.
type Session struct {
	SessionID       string  `json:"session_id"`
	PlayerID        int64   `json:"player_id"`
	Date            string  `json:"date"`
	DurationMinutes float64 `json:"duration_minutes"`
	DistanceKM      float64 `json:"distance_km"`
	AvgHeartRate    float64 `json:"avg_heart_rate"`
	MaxHeartRate    float64 `json:"max_heart_rate"`
	SprintCount     int     `json:"sprint_count"`
}

// AckResponse is the POST /sessions reply.
type AckResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// serviceStats is the subset of GET /stats the seeder polls.
type serviceStats struct {
	Started  bool `json:"started"`
	Players  int  `json:"players"`
	Sessions int  `json:"sessions"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersRegistered int
	SessionsGenerated int
	SessionsAccepted  int
	SessionsDuplicate int
	SessionsFailed    int
	Violations        []string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
