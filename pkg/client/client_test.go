package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boxwatch/boxwatch/internal/history"
	"github.com/boxwatch/boxwatch/internal/server"
	"github.com/boxwatch/boxwatch/internal/watchdog"
)

type fakeSource struct{ st watchdog.Status }

func (f fakeSource) Status() watchdog.Status { return f.st }

func TestStatusAgainstServer(t *testing.T) {
	src := fakeSource{st: watchdog.Status{CheckCount: 7, Health: watchdog.HealthHealthy}}
	srv := httptest.NewServer(server.NewRouter(src, nil, "").Handler())
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	require.True(t, c.IsReachable(context.Background()))

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), st.CheckCount)
	require.Equal(t, watchdog.HealthHealthy, st.Health)
}

func TestHistoryAgainstServer(t *testing.T) {
	sink, err := history.NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()
	require.NoError(t, sink.Send(context.Background(), history.Event{
		Type: history.EventCheck, OccurredAt: time.Now(), Outcome: "down", Failures: 1,
	}))

	srv := httptest.NewServer(server.NewRouter(fakeSource{}, sink, "").Handler())
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	events, err := c.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "down", events[0].Outcome)
}

func TestNotReachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.False(t, c.IsReachable(context.Background()))
	_, err := c.Status(context.Background())
	require.Error(t, err)
}
