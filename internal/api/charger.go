package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
)

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 2 * time.Second

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	ID              string              `json:"id"`
	State           charger.State       `json:"state"`
	Title           string              `json:"title"`
	Status          string              `json:"status"`
	Connectors      []charger.Connector `json:"connectors"`
	Session         dispatch.Session    `json:"session"`
	PendingOutgoing int                 `json:"pending_outgoing"`
}

// EventRequest is the body of POST /events.
type EventRequest struct {
	Event string `json:"event"`
}

// AvailabilityRequest is the body of POST /availability.
type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

type sessionEndBody struct {
	TransactionID *int      `json:"transaction_id"`
	IDTag         string    `json:"id_tag"`
	MeterStart    int       `json:"meter_start"`
	MeterStop     int       `json:"meter_stop"`
	EnergyWh      int       `json:"energy_wh"`
	DurationS     float64   `json:"duration_s"`
	Reason        string    `json:"reason"`
	StoppedAt     time.Time `json:"stopped_at"`
}

func newSessionEndBody(end dispatch.SessionEnd) sessionEndBody {
	body := sessionEndBody{
		IDTag:      end.IDTag,
		MeterStart: end.MeterStart,
		MeterStop:  end.MeterStop,
		EnergyWh:   end.EnergyWh(),
		DurationS:  end.Duration().Seconds(),
		Reason:     end.Reason,
		StoppedAt:  end.StoppedAt,
	}
	if end.HasTransactionID {
		id := end.TransactionID
		body.TransactionID = &id
	}
	return body
}

// handleHealth runs every registered component check. Any failure turns the
// response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make(map[string]string, len(names))
	status, code := "ok", http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"components":     components,
		"ws_clients":     s.hub.ClientCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	c := s.ctrl.Charger()
	state := s.ctrl.CurrentState()
	writeJSON(w, http.StatusOK, StatusResponse{
		ID:              c.ID().String(),
		State:           state,
		Title:           state.Title(),
		Status:          string(dispatch.StatusFor(state)),
		Connectors:      c.Connectors(),
		Session:         s.ctrl.Session(),
		PendingOutgoing: s.ctrl.PendingOutgoing(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Session())
}

// handleEvent queues a hardware event. The transition happens asynchronously,
// so the response is 202 and carries no resulting state.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ev, err := charger.ParseEvent(req.Event)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	s.ctrl.PushHardwareEvent(ev)
	s.logger.Info("hardware event queued via API", "event", ev, "request_id", requestID(r))
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": ev})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Available == nil {
		writeBadRequest(w, "available is required")
		return
	}

	if err := s.ctrl.SetAvailability(*req.Available); err != nil {
		if errors.Is(err, charger.ErrDisallowed) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("availability change failed", "error", err)
		writeInternalError(w, "availability change failed")
		return
	}

	state := s.ctrl.CurrentState()
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "title": state.Title()})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "journal is disabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	transitions, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading journal failed", "error", err)
		writeInternalError(w, "reading journal failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions, "count": len(transitions)})
}

func (s *Server) handleJournalMessages(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "journal is disabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	messages, err := s.journal.RecentMessages(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading message journal failed", "error", err)
		writeInternalError(w, "reading journal failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "count": len(messages)})
}

// parseLimit reads ?limit=N. Absent means 0, which the repository replaces
// with its default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
