package model

import (
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWindow(t *testing.T) {
	Convey("Given a reference time", t, func() {
		end := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

		Convey("When building a 7-day window", func() {
			w, err := NewWindow(end, 7)

			Convey("Then the bounds should be inclusive", func() {
				So(err, ShouldBeNil)
				So(w.Days, ShouldEqual, 7)
				So(w.Start, ShouldEqual, end.AddDate(0, 0, -7))
				So(w.Contains(w.Start), ShouldBeTrue)
				So(w.Contains(end), ShouldBeTrue)
				So(w.Contains(end.Add(time.Second)), ShouldBeFalse)
				So(w.Contains(w.Start.Add(-time.Second)), ShouldBeFalse)
			})
		})

		Convey("When the window length is not positive", func() {
			for _, days := range []int{0, -3} {
				_, err := NewWindow(end, days)
				So(errors.Is(err, ErrInvalidWindow), ShouldBeTrue)
			}
		})
	})
}

func TestSessionMetricCheck(t *testing.T) {
	Convey("Given session records", t, func() {
		valid := SessionMetric{DurationMinutes: 90, DistanceKM: 8, AvgHeartRate: 150, MaxHeartRate: 180, SprintCount: 20}

		Convey("A valid record should pass", func() {
			So(valid.Check(), ShouldEqual, SkipNone)
			So(valid.HasHeartRate(), ShouldBeTrue)
		})

		Convey("A record without heart rate should pass", func() {
			s := valid
			s.AvgHeartRate, s.MaxHeartRate = 0, 0
			So(s.Check(), ShouldEqual, SkipNone)
			So(s.HasHeartRate(), ShouldBeFalse)
		})

		Convey("Impossible values should be reported in order", func() {
			cases := map[SkipReason]func(*SessionMetric){
				SkipNegativeDuration:  func(s *SessionMetric) { s.DurationMinutes = -1 },
				SkipNegativeDistance:  func(s *SessionMetric) { s.DistanceKM = -0.5 },
				SkipNegativeHeartRate: func(s *SessionMetric) { s.MaxHeartRate = -1 },
				SkipNegativeSprints:   func(s *SessionMetric) { s.SprintCount = -2 },
				SkipMaxBelowAvgHR:     func(s *SessionMetric) { s.MaxHeartRate = 140 },

				SkipImplausibleDuration:  func(s *SessionMetric) { s.DurationMinutes = MaxSessionMinutes + 1 },
				SkipImplausibleDistance:  func(s *SessionMetric) { s.DistanceKM = 250 },
				SkipImplausibleHeartRate: func(s *SessionMetric) { s.MaxHeartRate = 400 },
				SkipImplausibleSprints:   func(s *SessionMetric) { s.SprintCount = math.MaxInt64/2 + 1 },
			}
			for want, mutate := range cases {
				s := valid
				mutate(&s)
				So(s.Check(), ShouldEqual, want)
			}

			s := valid
			s.DurationMinutes, s.DistanceKM = -1, -1
			So(s.Check(), ShouldEqual, SkipNegativeDuration)
		})

		Convey("Values at the per-session bounds should pass", func() {
			s := valid
			s.DurationMinutes, s.DistanceKM, s.SprintCount = MaxSessionMinutes, MaxSessionKM, MaxSessionSprints
			s.AvgHeartRate, s.MaxHeartRate = MaxHeartRate, MaxHeartRate
			So(s.Check(), ShouldEqual, SkipNone)
		})
	})
}

func TestPartition(t *testing.T) {
	Convey("Given sessions around a window", t, func() {
		end := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		w, _ := NewWindow(end, 7)
		sessions := []SessionMetric{
			{SessionID: "in", Date: end.AddDate(0, 0, -1), DurationMinutes: 60},
			{SessionID: "old", Date: end.AddDate(0, 0, -8), DurationMinutes: 60},
			{SessionID: "bad", Date: end.AddDate(0, 0, -2), DurationMinutes: -10},
			{SessionID: "bad-old", Date: end.AddDate(0, 0, -30), DurationMinutes: -10},
		}

		Convey("When partitioning", func() {
			valid, skipped := Partition(sessions, w)

			Convey("Then only in-window records should be classified", func() {
				So(len(valid), ShouldEqual, 1)
				So(valid[0].SessionID, ShouldEqual, "in")
				So(skipped, ShouldResemble, []Skipped{{SessionID: "bad", Reason: SkipNegativeDuration}})
			})
		})
	})
}
