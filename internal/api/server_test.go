package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/config"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/logging"
	"github.com/nerrad567/chargepoint-core/internal/journal"
)

type fakeController struct {
	mu           sync.Mutex
	c            *charger.Charger
	events       []charger.Event
	availErr     error
	session      dispatch.Session
	changeFns    []func(charger.Change)
	sessionEnds  []func(dispatch.SessionEnd)
	availability []bool
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()
	c, err := charger.New(charger.Options{
		ID:         "cp-test",
		Connectors: []charger.Connector{{ID: "1", Type: charger.ConnectorType2, PowerW: 22000}},
	})
	require.NoError(t, err)
	return &fakeController{c: c}
}

func (f *fakeController) Charger() *charger.Charger   { return f.c }
func (f *fakeController) CurrentState() charger.State { return f.c.State() }
func (f *fakeController) Session() dispatch.Session   { return f.session }
func (f *fakeController) PendingOutgoing() int        { return 2 }

func (f *fakeController) PushHardwareEvent(ev charger.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeController) SetAvailability(available bool) error {
	if f.availErr != nil {
		return f.availErr
	}
	f.availability = append(f.availability, available)
	_, _, err := f.c.SetAvailability(available)
	return err
}

func (f *fakeController) OnStateChange(fn func(charger.Change)) {
	f.changeFns = append(f.changeFns, fn)
}

func (f *fakeController) OnSessionEnd(fn func(dispatch.SessionEnd)) {
	f.sessionEnds = append(f.sessionEnds, fn)
}

func (f *fakeController) emit(change charger.Change) {
	for _, fn := range f.changeFns {
		fn(change)
	}
}

type fakeJournal struct {
	transitions []journal.Transition
	messages    []journal.Message
	lastLimit   int
	err         error
}

func (j *fakeJournal) Record(context.Context, *journal.Transition) error     { return nil }
func (j *fakeJournal) RecordMessage(context.Context, *journal.Message) error { return nil }
func (j *fakeJournal) Prune(context.Context, time.Time) (int64, error)       { return 0, nil }

func (j *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Transition, error) {
	j.lastLimit = limit
	return j.transitions, j.err
}

func (j *fakeJournal) RecentMessages(_ context.Context, limit int) ([]journal.Message, error) {
	j.lastLimit = limit
	return j.messages, j.err
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testServer(t *testing.T, deps Deps) (*Server, *fakeController) {
	t.Helper()

	ctrl, ok := deps.Controller.(*fakeController)
	if !ok || ctrl == nil {
		ctrl = newFakeController(t)
		deps.Controller = ctrl
	}
	deps.Logger = testLogger()
	deps.Version = "test"
	deps.WS = config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}

	srv, err := New(deps)
	require.NoError(t, err)
	return srv, ctrl
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{Controller: newFakeController(t)})
	assert.Error(t, err)

	_, err = New(Deps{Logger: testLogger()})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, Deps{Checks: map[string]HealthChecker{
		"database": checkFunc(func(context.Context) error { return nil }),
	}})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"database": "ok"}, body["components"])
}

func TestHealth_Degraded(t *testing.T) {
	srv, _ := testServer(t, Deps{Checks: map[string]HealthChecker{
		"database": checkFunc(func(context.Context) error { return nil }),
		"mqtt":     checkFunc(func(context.Context) error { return errors.New("not connected") }),
	}})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "not connected", body["components"].(map[string]any)["mqtt"])
}

func TestRequestID_Propagated(t *testing.T) {
	srv, _ := testServer(t, Deps{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	srv, ctrl := testServer(t, Deps{})
	ctrl.session = dispatch.Session{Registration: "Accepted", TransactionActive: true, TransactionID: 9, HasTransactionID: true}

	rec := do(t, srv, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "cp-test", status.ID)
	assert.Equal(t, charger.StateAvailable, status.State)
	assert.Equal(t, "Available", status.Title)
	assert.Equal(t, "Available", status.Status)
	require.Len(t, status.Connectors, 1)
	assert.Equal(t, charger.ConnectorType2, status.Connectors[0].Type)
	assert.Equal(t, 9, status.Session.TransactionID)
	assert.Equal(t, 2, status.PendingOutgoing)
}

func TestEvents(t *testing.T) {
	srv, ctrl := testServer(t, Deps{})

	rec := do(t, srv, http.MethodPost, "/api/v1/events", `{"event":"plugin"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []charger.Event{charger.EventPlugIn}, ctrl.events)

	rec = do(t, srv, http.MethodPost, "/api/v1/events", `{"event":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/events", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, ctrl.events, 1)
}

func TestAvailability(t *testing.T) {
	srv, ctrl := testServer(t, Deps{})

	rec := do(t, srv, http.MethodPost, "/api/v1/availability", `{"available":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "off", decode(t, rec)["state"])

	rec = do(t, srv, http.MethodPost, "/api/v1/availability", `{"available":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "available", decode(t, rec)["state"])

	rec = do(t, srv, http.MethodPost, "/api/v1/availability", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []bool{false, true}, ctrl.availability)
}

func TestPost_RequiresJSONContentType(t *testing.T) {
	srv, ctrl := testServer(t, Deps{})

	for _, path := range []string{"/api/v1/events", "/api/v1/availability"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"event":"swipe","available":false}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, path)
		assert.Equal(t, ErrCodeMediaType, decode(t, rec)["code"], path)
	}
	assert.Empty(t, ctrl.events)
	assert.Empty(t, ctrl.availability)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"event":"swipe"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAvailability_RefusedWhileCharging(t *testing.T) {
	srv, ctrl := testServer(t, Deps{})
	ctrl.availErr = charger.ErrDisallowed

	rec := do(t, srv, http.MethodPost, "/api/v1/availability", `{"available":false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrCodeConflict, decode(t, rec)["code"])
}

func TestJournal(t *testing.T) {
	repo := &fakeJournal{
		transitions: []journal.Transition{{ID: 1, From: "available", To: "occupied", Event: "plugin", Cause: "event"}},
		messages:    []journal.Message{{ID: 4, Direction: "out", Kind: "Call", Action: "Heartbeat"}},
	}
	srv, _ := testServer(t, Deps{Journal: repo})

	rec := do(t, srv, http.MethodGet, "/api/v1/journal?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
	assert.Equal(t, 5, repo.lastLimit)

	rec = do(t, srv, http.MethodGet, "/api/v1/journal/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"Heartbeat"`)
	assert.Equal(t, 0, repo.lastLimit)

	rec = do(t, srv, http.MethodGet, "/api/v1/journal?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournal_Failures(t *testing.T) {
	srv, _ := testServer(t, Deps{})
	rec := do(t, srv, http.MethodGet, "/api/v1/journal", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv, _ = testServer(t, Deps{Journal: &fakeJournal{err: errors.New("disk I/O error")}})
	rec = do(t, srv, http.MethodGet, "/api/v1/journal", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t, Deps{})
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNewSessionEndBody(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	body := newSessionEndBody(dispatch.SessionEnd{
		MeterStart: 1000,
		MeterStop:  1750,
		Reason:     "EVDisconnected",
		StartedAt:  start,
		StoppedAt:  start.Add(90 * time.Second),
	})

	assert.Nil(t, body.TransactionID)
	assert.Equal(t, 750, body.EnergyWh)
	assert.InDelta(t, 90.0, body.DurationS, 0.001)
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_StateChangedBroadcast(t *testing.T) {
	srv, ctrl := testServer(t, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    WSTypeSubscribe,
		"id":      "1",
		"payload": map[string]any{"channels": []string{ChannelStateChanged}},
	}))
	ack := readWS(t, conn)
	assert.Equal(t, WSTypeResponse, ack.Type)
	assert.Equal(t, "1", ack.ID)
	assert.Equal(t, 1, srv.ClientCount())

	ctrl.emit(charger.Change{From: charger.StateAvailable, To: charger.StateOccupied, Event: charger.EventPlugIn, Cause: charger.CauseEvent})

	ev := readWS(t, conn)
	assert.Equal(t, WSTypeEvent, ev.Type)
	assert.Equal(t, ChannelStateChanged, ev.EventType)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "occupied", payload["to"])
}

func TestWebSocket_PingAndUnknown(t *testing.T) {
	srv, _ := testServer(t, Deps{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": WSTypePing, "id": "p"}))
	assert.Equal(t, WSTypePong, readWS(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	assert.Equal(t, WSTypeError, readWS(t, conn).Type)
}

func TestWSPath(t *testing.T) {
	srv, _ := testServer(t, Deps{})
	assert.Equal(t, "/ws", srv.wsPath())

	srv.wsCfg.Path = "live"
	assert.Equal(t, "/live", srv.wsPath())
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	srv, _ := testServer(t, Deps{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://attacker.example"}})
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, srv.ClientCount())
}
