package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boxwatch/boxwatch/internal/history"
	"github.com/boxwatch/boxwatch/internal/watchdog"
)

type fakeSource struct{ st watchdog.Status }

func (f fakeSource) Status() watchdog.Status { return f.st }

func TestHandleStatus(t *testing.T) {
	src := fakeSource{st: watchdog.Status{
		CheckCount:  42,
		SuccessRate: 0.95,
		Health:      watchdog.HealthHealthy,
	}}
	srv := httptest.NewServer(NewRouter(src, nil, "/api").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st watchdog.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, int64(42), st.CheckCount)
	require.InDelta(t, 0.95, st.SuccessRate, 0.001)
}

func TestHandleHealthz(t *testing.T) {
	src := fakeSource{st: watchdog.Status{Health: watchdog.HealthWarning, HealthReason: "failure rate 60% over 20 checks"}}
	srv := httptest.NewServer(NewRouter(src, nil, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, watchdog.HealthWarning, body["health"])
	require.Contains(t, body["reason"], "failure rate")
}

func TestHandleHistory(t *testing.T) {
	sink, err := history.NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()
	require.NoError(t, sink.Send(context.Background(), history.Event{
		Type: history.EventRestart, OccurredAt: time.Now(), Outcome: "succeeded",
	}))

	srv := httptest.NewServer(NewRouter(fakeSource{}, sink, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/history?limit=5")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []history.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	require.Equal(t, "succeeded", events[0].Outcome)
}

func TestHandleHistoryNotConfigured(t *testing.T) {
	srv := httptest.NewServer(NewRouter(fakeSource{}, nil, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleHistoryBadLimit(t *testing.T) {
	sink, err := history.NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	srv := httptest.NewServer(NewRouter(fakeSource{}, sink, "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/history?limit=abc")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSanitizeBase(t *testing.T) {
	require.Equal(t, "", sanitizeBase(""))
	require.Equal(t, "", sanitizeBase("/"))
	require.Equal(t, "/api", sanitizeBase("api"))
	require.Equal(t, "/api", sanitizeBase("/api/"))
}
