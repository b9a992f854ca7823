package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/pitchload/internal/app"
	"github.com/okian/pitchload/internal/domain/model"
	"github.com/okian/pitchload/pkg/logger"
)

const maxBodyBytes = 1 << 20

// playerRequest mirrors the OpenAPI schema for POST /players.
type playerRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Age      int    `json:"age"`
	TeamID   *int64 `json:"team_id"`
	PhotoURL string `json:"photo_url"`
}

func (p playerRequest) validate() error {
	switch {
	case p.ID <= 0:
		return errors.New("id must be positive")
	case strings.TrimSpace(p.Name) == "":
		return errors.New("missing name")
	case p.Age < 0:
		return errors.New("age must not be negative")
	}
	return nil
}

// sessionRequest mirrors the OpenAPI schema for POST /sessions. Heart-rate
// fields may be omitted or null when not recorded.
type sessionRequest struct {
	SessionID       string   `json:"session_id"`
	PlayerID        int64    `json:"player_id"`
	Date            string   `json:"date"`
	DurationMinutes float64  `json:"duration_minutes"`
	DistanceKM      float64  `json:"distance_km"`
	AvgHeartRate    *float64 `json:"avg_heart_rate"`
	MaxHeartRate    *float64 `json:"max_heart_rate"`
	SprintCount     int      `json:"sprint_count"`
}

func (s sessionRequest) toModel() (model.SessionMetric, error) {
	if s.PlayerID <= 0 {
		return model.SessionMetric{}, errors.New("player_id must be positive")
	}
	if strings.TrimSpace(s.Date) == "" {
		return model.SessionMetric{}, errors.New("missing date")
	}
	date, err := parseDate(s.Date)
	if err != nil {
		return model.SessionMetric{}, err
	}
	m := model.SessionMetric{
		SessionID:       strings.TrimSpace(s.SessionID),
		PlayerID:        s.PlayerID,
		Date:            date,
		DurationMinutes: s.DurationMinutes,
		DistanceKM:      s.DistanceKM,
		SprintCount:     s.SprintCount,
	}
	if s.AvgHeartRate != nil {
		m.AvgHeartRate = *s.AvgHeartRate
	}
	if s.MaxHeartRate != nil {
		m.MaxHeartRate = *s.MaxHeartRate
	}
	return m, nil
}

// parseDate accepts RFC3339 timestamps or plain calendar dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid date; must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

type ackResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// IngestHandler accepts players and sessions.
type IngestHandler struct {
	deps   Ingestion
	logger logger.Logger
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(deps Ingestion, l logger.Logger) *IngestHandler {
	return &IngestHandler{deps: deps, logger: l}
}

// HandlePostPlayer handles POST /players requests.
func (h *IngestHandler) HandlePostPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_player"
	var req playerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	p := model.PlayerProfile(req)
	if err := h.deps.RegisterPlayer(r.Context(), p); err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// HandlePostSession handles POST /sessions requests.
func (h *IngestHandler) HandlePostSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	var req sessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.SubmitSession(r.Context(), m)
	if err != nil {
		if errors.Is(err, service.ErrBackpressure) {
			err = WrapKind(op, ErrBackpressure, err)
		} else {
			err = Wrap(op, err)
		}
		status, code := statusFor(err)
		if status >= statusInternalError {
			h.logger.Error(r.Context(), "session submission failed",
				logger.String("request_id", RequestID(r.Context())),
				logger.Error(err),
			)
		}
		writeError(w, status, code, err)
		return
	}

	if receipt.Status == service.SubmitDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{SessionID: receipt.SessionID, Status: string(receipt.Status), Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{SessionID: receipt.SessionID, Status: string(receipt.Status)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
