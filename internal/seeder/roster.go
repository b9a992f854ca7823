package seeder

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

type rosterEntry struct {
	name     string
	position string
	age      int
}

var demoRoster = []rosterEntry{
	{"Marcus Silva", "Forward", 24},
	{"James Rodriguez", "Midfielder", 28},
	{"Carlos Martinez", "Defender", 26},
	{"Mohamed Williams", "Forward", 22},
	{"Kevin Jones", "Midfielder", 30},
	{"Sergio Garcia", "Goalkeeper", 29},
	{"David Johnson", "Defender", 25},
	{"Alex Brown", "Midfielder", 23},
	{"Bruno Miller", "Forward", 27},
	{"Luka Davis", "Midfielder", 31},
	{"Toni Fernandez", "Defender", 28},
	{"Joshua Lopez", "Defender", 24},
	{"Erling Gonzalez", "Forward", 23},
	{"Kylian Wilson", "Forward", 25},
	{"Vinicius Anderson", "Midfielder", 22},
	{"Jude Thomas", "Midfielder", 21},
	{"Phil Taylor", "Midfielder", 24},
	{"Mason Moore", "Forward", 23},
	{"Bukayo Jackson", "Forward", 22},
	{"Jamal Martin", "Midfielder", 21},
}

// seedNamespace scopes generated session ids so reruns with the same seed
// resubmit the same ids and are deduplicated by the service.
var seedNamespace = uuid.MustParse("5b0f6a52-3f1c-4d8e-9a57-0c7e2b1d4f60")

// Generator produces a deterministic demo dataset.
type Generator struct {
	cfg Config
	rnd *rand.Rand
	now time.Time
}

// NewGenerator returns a generator anchored at now.
func NewGenerator(cfg Config, now time.Time) *Generator {
	return &Generator{
		cfg: cfg,
		rnd: rand.New(rand.NewPCG(cfg.Seed, uint64(cfg.TeamID))),
		now: now.UTC(),
	}
}

// Players returns the roster. Ids are derived from the team id so several
// teams can be seeded side by side.
func (g *Generator) Players() []Player {
	out := make([]Player, 0, g.cfg.Players)
	team := g.cfg.TeamID
	for i := range g.cfg.Players {
		e := demoRoster[i%len(demoRoster)]
		name := e.name
		if n := i / len(demoRoster); n > 0 {
			name = fmt.Sprintf("%s %d", e.name, n+1)
		}
		out = append(out, Player{
			ID:       team*1000 + int64(i) + 1,
			Name:     name,
			Position: e.position,
			Age:      e.age,
			TeamID:   &team,
		})
	}
	return out
}

// Sessions returns MinSessions..MaxSessions sessions per player, dated
// within the trailing Days.
func (g *Generator) Sessions(players []Player) []Session {
	var out []Session
	for _, p := range players {
		n := g.between(g.cfg.MinSessions, g.cfg.MaxSessions)
		for i := range n {
			daysAgo := g.rnd.IntN(max(1, g.cfg.Days))
			offset := time.Duration(1+g.rnd.IntN(12)) * time.Hour
			date := g.now.Add(-time.Duration(daysAgo)*24*time.Hour - offset)
			key := fmt.Sprintf("%d/%d/%d", g.cfg.Seed, p.ID, i)
			out = append(out, Session{
				SessionID:       uuid.NewSHA1(seedNamespace, []byte(key)).String(),
				PlayerID:        p.ID,
				Date:            date.Format(time.RFC3339),
				DurationMinutes: float64(g.between(60, 120)),
				DistanceKM:      float64(g.between(500, 1200)) / 100,
				AvgHeartRate:    float64(g.between(130, 170)),
				MaxHeartRate:    float64(g.between(170, 195)),
				SprintCount:     g.between(10, 40),
			})
		}
	}
	return out
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.IntN(hi-lo+1)
}
