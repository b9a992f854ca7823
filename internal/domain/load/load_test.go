package load

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var refTime = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

func window(days int) model.Window {
	w, err := model.NewWindow(refTime, days)
	if err != nil {
		panic(err)
	}
	return w
}

func daysAgo(d int) time.Time { return refTime.AddDate(0, 0, -d) }

func TestAnalyzeEmptyWindow(t *testing.T) {
	Convey("Given a player without sessions in the window", t, func() {
		a := NewAnalyzer()
		player := model.PlayerProfile{ID: 1, Name: "Ana", Position: "Forward", Age: 35}
		old := []model.SessionMetric{{SessionID: "s1", PlayerID: 1, Date: daysAgo(20), DurationMinutes: 90}}

		for _, sessions := range [][]model.SessionMetric{nil, old} {
			res := a.Analyze(context.Background(), player, sessions, window(7))

			So(res.LoadScore, ShouldEqual, 0)
			So(res.Status, ShouldEqual, types.StatusLow)
			So(res.Recommendation, ShouldEqual, types.RecNoData)
			So(res.SessionCount, ShouldEqual, 0)
			So(res.AvgDistanceKM, ShouldEqual, 0)
			So(res.PlayerName, ShouldEqual, "Ana")
		}
	})
}

func TestAnalyzeWeighting(t *testing.T) {
	Convey("Given five 90 minute sessions with 15 sprints and no heart rate", t, func() {
		a := NewAnalyzer()
		var sessions []model.SessionMetric
		for i := 0; i < 5; i++ {
			sessions = append(sessions, model.SessionMetric{
				SessionID: "s", PlayerID: 2, Date: daysAgo(i), DurationMinutes: 90, DistanceKM: 8, SprintCount: 15,
			})
		}

		Convey("When analyzing a 7-day window", func() {
			res := a.Analyze(context.Background(), model.PlayerProfile{ID: 2}, sessions, window(7))

			Convey("Then volume and sprint intensity should combine 80/20", func() {
				// volume 450/630, sprint signal 15/30
				So(res.LoadScore, ShouldAlmostEqual, 0.8*100*450.0/630.0+0.2*50, 1e-9)
				So(res.Status, ShouldEqual, types.StatusOptimal)
				So(res.Recommendation, ShouldEqual, types.RecMaintainProgram)
				So(res.TotalMinutes, ShouldEqual, 450)
				So(res.AvgDistanceKM, ShouldEqual, 8)
				So(res.AvgHeartRate, ShouldEqual, 0)
			})
		})

		Convey("When the analyzer uses custom weights", func() {
			custom := NewAnalyzer(WithWeights(1, 0), WithBaselineMinutesPerDay(60))
			res := custom.Analyze(context.Background(), model.PlayerProfile{ID: 2}, sessions, window(14))

			Convey("Then only volume against the new baseline should count", func() {
				So(res.LoadScore, ShouldAlmostEqual, 100*450.0/840.0, 1e-9)
				So(res.Status, ShouldEqual, types.StatusOptimal)
			})
		})
	})
}

func TestAnalyzeHeavyWeek(t *testing.T) {
	Convey("Given ten sessions totaling 900 minutes with a high heart rate", t, func() {
		a := NewAnalyzer()
		var sessions []model.SessionMetric
		for i := 0; i < 10; i++ {
			sessions = append(sessions, model.SessionMetric{
				SessionID: "h", PlayerID: 3, Date: daysAgo(i % 7), DurationMinutes: 90,
				DistanceKM: 10, AvgHeartRate: 172, MaxHeartRate: 190, SprintCount: 25,
			})
		}

		res := a.Analyze(context.Background(), model.PlayerProfile{ID: 3}, sessions, window(7))

		So(res.TotalMinutes, ShouldEqual, 900)
		So(res.LoadScore, ShouldEqual, 100)
		So(res.Status, ShouldEqual, types.StatusWarning)
		So(res.Recommendation, ShouldEqual, types.RecReduceIntensity)
		So(res.AvgHeartRate, ShouldEqual, 172)
	})
}

func TestAnalyzeSkipsMalformedRecords(t *testing.T) {
	Convey("Given a negative-duration record among valid sessions", t, func() {
		a := NewAnalyzer()
		sessions := []model.SessionMetric{
			{SessionID: "a", Date: daysAgo(1), DurationMinutes: 60, DistanceKM: 5.555},
			{SessionID: "bad", Date: daysAgo(2), DurationMinutes: -45, DistanceKM: 7},
			{SessionID: "b", Date: daysAgo(3), DurationMinutes: 60, DistanceKM: 6},
		}

		var res types.LoadResult
		So(func() {
			res = a.Analyze(context.Background(), model.PlayerProfile{ID: 4}, sessions, window(7))
		}, ShouldNotPanic)

		So(res.TotalMinutes, ShouldEqual, 120)
		So(res.SessionCount, ShouldEqual, 2)
		So(res.AvgDistanceKM, ShouldEqual, 5.78)
	})
}

func TestAnalyzeSkipsImplausibleSprintCounts(t *testing.T) {
	Convey("Given sessions whose sprint counts would overflow the window sum", t, func() {
		a := NewAnalyzer()
		huge := math.MaxInt64/2 + 1
		sessions := []model.SessionMetric{
			{SessionID: "x", Date: daysAgo(1), DurationMinutes: 60, SprintCount: huge},
			{SessionID: "y", Date: daysAgo(2), DurationMinutes: 60, SprintCount: huge},
			{SessionID: "ok", Date: daysAgo(3), DurationMinutes: 60, SprintCount: 20},
		}
		res := a.Analyze(context.Background(), model.PlayerProfile{ID: 9}, sessions, window(7))

		Convey("Then only the plausible session should be scored", func() {
			So(res.SessionCount, ShouldEqual, 1)
			So(res.TotalMinutes, ShouldEqual, 60)
			want := 100 * (0.8*60/(7*90) + 0.2*20.0/30)
			So(res.LoadScore, ShouldAlmostEqual, want, 1e-9)
		})
	})
}

func TestClassifyBoundaries(t *testing.T) {
	Convey("Given load scores around the thresholds", t, func() {
		cases := []struct {
			score  float64
			status types.LoadStatus
		}{
			{0, types.StatusLow},
			{50, types.StatusLow},
			{50.0001, types.StatusOptimal},
			{85, types.StatusOptimal},
			{85.0001, types.StatusWarning},
			{100, types.StatusWarning},
		}
		for _, c := range cases {
			status, rec := Classify(c.score)
			So(status, ShouldEqual, c.status)
			So(rec, ShouldNotBeEmpty)
		}
	})
}

func TestAnalyzeProperties(t *testing.T) {
	Convey("Given random valid session sets", t, func() {
		a := NewAnalyzer()
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data

		for iter := 0; iter < 200; iter++ {
			days := 1 + rng.Intn(30)
			n := rng.Intn(25)
			sessions := make([]model.SessionMetric, 0, n)
			for i := 0; i < n; i++ {
				avg := float64(rng.Intn(200))
				sessions = append(sessions, model.SessionMetric{
					SessionID:       "r",
					Date:            daysAgo(rng.Intn(days + 1)),
					DurationMinutes: float64(rng.Intn(240)),
					DistanceKM:      rng.Float64() * 15,
					AvgHeartRate:    avg,
					MaxHeartRate:    avg + float64(rng.Intn(30)),
					SprintCount:     rng.Intn(80),
				})
			}
			player := model.PlayerProfile{ID: int64(iter)}

			first := a.Analyze(context.Background(), player, sessions, window(days))
			second := a.Analyze(context.Background(), player, sessions, window(days))

			So(first.LoadScore, ShouldBeBetweenOrEqual, 0, 100)
			So(first, ShouldResemble, second)
		}
	})
}

func TestSort(t *testing.T) {
	Convey("Given load results with tied scores", t, func() {
		results := []types.LoadResult{
			{PlayerID: 3, LoadScore: 40},
			{PlayerID: 2, LoadScore: 90},
			{PlayerID: 1, LoadScore: 40},
		}

		Convey("When sorting", func() {
			Sort(results)

			Convey("Then scores should descend with ties by player id", func() {
				So(results[0].PlayerID, ShouldEqual, 2)
				So(results[1].PlayerID, ShouldEqual, 1)
				So(results[2].PlayerID, ShouldEqual, 3)
			})
		})
	})
}
