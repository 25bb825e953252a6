package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boxwatch/boxwatch/internal/server"
	"github.com/boxwatch/boxwatch/internal/watchdog"
)

func TestBuildRootSubcommands(t *testing.T) {
	root := buildRoot()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"monitor", "check", "status", "discover", "validate", "version"} {
		require.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
}

func TestStatusDaemonNotReachable(t *testing.T) {
	c := command{global: &GlobalFlags{}}
	err := c.Status(StatusFlags{APIUrl: "http://127.0.0.1:1", APITimeout: time.Second})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not reachable")
}

type fakeSource struct{ st watchdog.Status }

func (f fakeSource) Status() watchdog.Status { return f.st }

func TestStatusAgainstRunningServer(t *testing.T) {
	src := fakeSource{st: watchdog.Status{CheckCount: 3, Health: watchdog.HealthHealthy, LastCheckSuccess: true}}
	srv := httptest.NewServer(server.NewRouter(src, nil, "/api").Handler())
	defer srv.Close()

	c := command{global: &GlobalFlags{}}
	require.NoError(t, c.Status(StatusFlags{APIUrl: srv.URL + "/api", APITimeout: time.Second}))
}

func TestValidateMissingCredentials(t *testing.T) {
	t.Setenv("BOXWATCH_ROUTER_USERNAME", "")
	t.Setenv("BOXWATCH_ROUTER_PASSWORD", "")
	c := command{global: &GlobalFlags{EnvFile: "/nonexistent/.env"}}
	err := c.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "configuration invalid")
}

func TestValidateOK(t *testing.T) {
	t.Setenv("BOXWATCH_ROUTER_USERNAME", "admin")
	t.Setenv("BOXWATCH_ROUTER_PASSWORD", "secret")
	// Point at a local closed port so the reachability probe fails fast;
	// validate succeeds either way.
	t.Setenv("BOXWATCH_ROUTER_HOST", "127.0.0.1")
	t.Setenv("BOXWATCH_ROUTER_PORT", "1")
	c := command{global: &GlobalFlags{EnvFile: "/nonexistent/.env"}}
	require.NoError(t, c.Validate())
}
