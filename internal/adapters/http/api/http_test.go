package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/pitchload/internal/adapters/cache"
	"github.com/okian/pitchload/internal/adapters/http/api"
	service "github.com/okian/pitchload/internal/app"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/internal/domain/types"
	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// mockDeps implements api.Dependencies.
type mockDeps struct {
	mu sync.Mutex

	loadCalls int
	lastTeam  *int64
	lastDays  int
	omitted   int
	err       error

	players   []model.PlayerProfile
	sessions  []model.SessionMetric
	submitErr error
	seen      map[string]bool
	pingErr   error
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: make(map[string]bool)}
}

func (m *mockDeps) TrainingLoad(_ context.Context, teamID *int64, days int) (types.TrainingLoadReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	m.lastTeam, m.lastDays = teamID, days
	if m.err != nil {
		return types.TrainingLoadReport{}, m.err
	}
	return types.TrainingLoadReport{
		PeriodDays:     days,
		TotalPlayers:   1 + m.omitted,
		PlayersOmitted: m.omitted,
		Players: []types.LoadResult{
			{PlayerID: 1, PlayerName: "Ana", LoadScore: 72.5, Status: types.StatusOptimal, Recommendation: types.RecMaintainProgram},
		},
	}, nil
}

func (m *mockDeps) InjuryRisk(_ context.Context, teamID *int64) (types.InjuryRiskReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTeam = teamID
	if m.err != nil {
		return types.InjuryRiskReport{}, m.err
	}
	return types.NewInjuryRiskReport(14, 0, []types.RiskResult{
		{PlayerID: 2, RiskScore: 75, RiskLevel: types.LevelHigh, RiskFactors: []string{"High training volume"}},
	}), nil
}

func (m *mockDeps) Insights(_ context.Context, _ *int64, days int) (types.InsightsBundle, error) {
	if m.err != nil {
		return types.InsightsBundle{}, m.err
	}
	return types.InsightsBundle{
		RecoveryRecommendations: []types.RecoveryItem{},
		InjuryPrevention:        []types.PreventionItem{},
		WorkloadOptimization:    []types.OptimizationItem{},
		Summary:                 types.Summary{PeriodDays: days},
	}, nil
}

func (m *mockDeps) DefaultWindowDays() int { return 7 }

func (m *mockDeps) RegisterPlayer(_ context.Context, p model.PlayerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = append(m.players, p)
	return nil
}

func (m *mockDeps) SubmitSession(_ context.Context, s model.SessionMetric) (service.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return service.Receipt{}, m.submitErr
	}
	if m.seen[s.SessionID] {
		return service.Receipt{SessionID: s.SessionID, Status: service.SubmitDuplicate}, nil
	}
	m.seen[s.SessionID] = true
	m.sessions = append(m.sessions, s)
	return service.Receipt{SessionID: s.SessionID, Status: service.SubmitAccepted}, nil
}

func (m *mockDeps) GetStats(context.Context) service.Stats {
	return service.Stats{Started: true, WorkerCount: 4, Players: 20}
}

func (m *mockDeps) Ping(context.Context) error { return m.pingErr }

func newRouter(deps *mockDeps, opts ...api.Option) http.Handler {
	return api.NewServer(deps, opts...).NewRouter(context.Background())
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a router", t, func() {
		deps := newMockDeps()
		h := newRouter(deps, api.WithVersion("1.2.3"))

		Convey("When the repository answers", func() {
			w := do(h, http.MethodGet, "/health", "")

			Convey("Then /health should report ok with the version", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "ok")
				So(body["version"], ShouldEqual, "1.2.3")
				So(body["repository"], ShouldEqual, "ok")
			})
		})

		Convey("When the repository is down", func() {
			deps.pingErr = errors.New("connection refused")
			w := do(h, http.MethodGet, "/health", "")

			Convey("Then /health should report degraded", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "degraded")
			})
		})

		Convey("When scraping /healthz", func() {
			_ = do(h, http.MethodGet, "/stats", "")
			w := do(h, http.MethodGet, "/healthz", "")

			Convey("Then it should serve the service registry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "pitchload_analytics_http_requests_total")
			})
		})

		Convey("When reading /stats", func() {
			w := do(h, http.MethodGet, "/stats", "")

			Convey("Then it should return the service stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var st service.Stats
				So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
				So(st.Started, ShouldBeTrue)
				So(st.Players, ShouldEqual, 20)
			})
		})

		Convey("When requesting an unknown route", func() {
			w := do(h, http.MethodGet, "/players/unknown/history", "")

			Convey("Then it should answer a JSON 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "not_found")
			})
		})
	})
}

func TestAnalyticsRoutes(t *testing.T) {
	Convey("Given a router with a memory cache", t, func() {
		deps := newMockDeps()
		h := newRouter(deps, api.WithCache(cache.NewMemoryCache()))

		Convey("When requesting training load twice", func() {
			first := do(h, http.MethodGet, "/analytics/training-load", "")
			second := do(h, http.MethodGet, "/analytics/training-load", "")

			Convey("Then the second response should come from the cache", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(first.Header().Get(api.CacheHeader), ShouldEqual, "MISS")
				So(second.Header().Get(api.CacheHeader), ShouldEqual, "HIT")
				So(second.Body.String(), ShouldEqual, first.Body.String())
				So(deps.loadCalls, ShouldEqual, 1)
				So(deps.lastDays, ShouldEqual, 7)
				So(deps.lastTeam, ShouldBeNil)
			})
		})

		Convey("When a player was omitted from the report", func() {
			deps.omitted = 1
			first := do(h, http.MethodGet, "/analytics/training-load", "")
			deps.omitted = 0
			second := do(h, http.MethodGet, "/analytics/training-load", "")
			third := do(h, http.MethodGet, "/analytics/training-load", "")

			Convey("Then the partial report should not be cached", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(first.Header().Get(api.CacheHeader), ShouldEqual, "MISS")
				So(second.Header().Get(api.CacheHeader), ShouldEqual, "MISS")
				So(third.Header().Get(api.CacheHeader), ShouldEqual, "HIT")
				So(deps.loadCalls, ShouldEqual, 2)

				var report types.TrainingLoadReport
				So(json.Unmarshal(third.Body.Bytes(), &report), ShouldBeNil)
				So(report.PlayersOmitted, ShouldEqual, 0)
			})
		})

		Convey("When filtering by team and days", func() {
			w := do(h, http.MethodGet, "/analytics/training-load?team_id=3&days=28", "")

			Convey("Then the parameters should reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(*deps.lastTeam, ShouldEqual, 3)
				So(deps.lastDays, ShouldEqual, 28)
				var report types.TrainingLoadReport
				So(json.Unmarshal(w.Body.Bytes(), &report), ShouldBeNil)
				So(report.PeriodDays, ShouldEqual, 28)
			})
		})

		Convey("When a parameter is not a number", func() {
			days := do(h, http.MethodGet, "/analytics/insights?days=week", "")
			team := do(h, http.MethodGet, "/analytics/injury-risk?team_id=abc", "")

			Convey("Then it should be a bad request", func() {
				So(days.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(days)["code"], ShouldEqual, "bad_request")
				So(team.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the window is rejected by the service", func() {
			deps.err = fmt.Errorf("%w: days must be positive", service.ErrInvalidWindow)
			w := do(h, http.MethodGet, "/analytics/training-load?days=0", "")

			Convey("Then it should answer invalid_window", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_window")
			})
		})

		Convey("When the repository is unavailable", func() {
			deps.err = service.ErrRepositoryUnavailable
			w := do(h, http.MethodGet, "/analytics/injury-risk", "")

			Convey("Then it should answer a retryable 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Header().Get("Retry-After"), ShouldNotBeEmpty)
				So(decodeError(w)["code"], ShouldEqual, "repository_unavailable")
			})
		})

		Convey("When requesting injury risk and insights", func() {
			risk := do(h, http.MethodGet, "/analytics/injury-risk", "")
			insights := do(h, http.MethodGet, "/analytics/insights?days=14", "")

			Convey("Then both envelopes should be returned", func() {
				So(risk.Code, ShouldEqual, http.StatusOK)
				var report types.InjuryRiskReport
				So(json.Unmarshal(risk.Body.Bytes(), &report), ShouldBeNil)
				So(report.OverallRisk, ShouldEqual, types.LevelHigh)
				So(report.HighRiskCount, ShouldEqual, 1)

				So(insights.Code, ShouldEqual, http.StatusOK)
				var bundle types.InsightsBundle
				So(json.Unmarshal(insights.Body.Bytes(), &bundle), ShouldBeNil)
				So(bundle.Summary.PeriodDays, ShouldEqual, 14)
				So(bundle.RecoveryRecommendations, ShouldNotBeNil)
			})
		})
	})
}

func TestIngestRoutes(t *testing.T) {
	Convey("Given a router", t, func() {
		deps := newMockDeps()
		h := newRouter(deps)

		Convey("When registering a player", func() {
			w := do(h, http.MethodPost, "/players", `{"id":1,"name":"Ana Costa","position":"Midfielder","age":24,"team_id":3}`)

			Convey("Then it should be created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(len(deps.players), ShouldEqual, 1)
				So(*deps.players[0].TeamID, ShouldEqual, 3)
			})
		})

		Convey("When registering an invalid player", func() {
			noName := do(h, http.MethodPost, "/players", `{"id":1}`)
			unknownField := do(h, http.MethodPost, "/players", `{"id":1,"name":"A","rating":9}`)

			Convey("Then it should be rejected", func() {
				So(noName.Code, ShouldEqual, http.StatusBadRequest)
				So(unknownField.Code, ShouldEqual, http.StatusBadRequest)
				So(len(deps.players), ShouldEqual, 0)
			})
		})

		Convey("When submitting a session twice", func() {
			body := `{"session_id":"s-1","player_id":1,"date":"2025-03-09","duration_minutes":90,"distance_km":8.5,"avg_heart_rate":null,"sprint_count":12}`
			first := do(h, http.MethodPost, "/sessions", body)
			second := do(h, http.MethodPost, "/sessions", body)

			Convey("Then it should be accepted once and acknowledged as duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.sessions), ShouldEqual, 1)
				So(deps.sessions[0].HasHeartRate(), ShouldBeFalse)
			})
		})

		Convey("When submitting malformed sessions", func() {
			badJSON := do(h, http.MethodPost, "/sessions", `{"player_id":`)
			badDate := do(h, http.MethodPost, "/sessions", `{"player_id":1,"date":"yesterday"}`)
			noPlayer := do(h, http.MethodPost, "/sessions", `{"date":"2025-03-09T10:00:00Z"}`)

			Convey("Then each should be a bad request", func() {
				So(badJSON.Code, ShouldEqual, http.StatusBadRequest)
				So(badDate.Code, ShouldEqual, http.StatusBadRequest)
				So(noPlayer.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service refuses a session", func() {
			body := `{"session_id":"s-2","player_id":1,"date":"2025-03-09T10:00:00Z","duration_minutes":60}`

			deps.submitErr = service.ErrBackpressure
			full := do(h, http.MethodPost, "/sessions", body)
			deps.submitErr = fmt.Errorf("%w: 1", service.ErrUnknownPlayer)
			unknown := do(h, http.MethodPost, "/sessions", body)
			deps.submitErr = fmt.Errorf("%w: negative_duration", service.ErrInvalidRecord)
			invalid := do(h, http.MethodPost, "/sessions", body)

			Convey("Then the errors should map to their status codes", func() {
				So(full.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(full)["code"], ShouldEqual, "backpressure")
				So(decodeError(full)["message"], ShouldEqual, "api.post_session: backpressure: ingestion queue full")
				So(full.Header().Get("Retry-After"), ShouldNotBeEmpty)
				So(unknown.Code, ShouldEqual, http.StatusNotFound)
				So(invalid.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a router", t, func() {
		h := newRouter(newMockDeps())

		Convey("When the caller sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it should be echoed", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})

		Convey("When the caller sends none", func() {
			w := do(h, http.MethodGet, "/health", "")

			Convey("Then one should be generated", func() {
				So(len(w.Header().Get(api.RequestIDHeader)), ShouldEqual, 36)
			})
		})
	})
}

// requestCount reads http_requests_total for one endpoint and status.
func requestCount(endpoint, status string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "http_requests_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["endpoint"] == endpoint && labels["status_code"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestPanicRecovery(t *testing.T) {
	Convey("Given a router with a handler that panics", t, func() {
		r := api.NewServer(newMockDeps()).NewRouter(context.Background())
		r.Get("/explode", func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		})
		before := requestCount("/explode", "500")

		Convey("When the route is requested", func() {
			w := do(r, http.MethodGet, "/explode", "")

			Convey("Then the caller should get a 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["code"], ShouldEqual, "internal_error")
			})

			Convey("Then the request should be counted with its status", func() {
				So(requestCount("/explode", "500"), ShouldEqual, before+1)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given API error helpers", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes should both match errors.Is", func() {
			So(errors.Is(api.WrapKind("op", api.ErrBadRequest, cause), api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", cause), cause), ShouldBeTrue)
			wrapped := api.WrapKind("op", api.ErrBackpressure, cause)
			So(errors.Is(wrapped, api.ErrBackpressure), ShouldBeTrue)
			So(errors.Is(wrapped, cause), ShouldBeTrue)
			So(wrapped.Error(), ShouldEqual, "op: backpressure: boom")
			So(api.Wrap("op", nil), ShouldBeNil)
		})
	})
}
