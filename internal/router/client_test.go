package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, srv *httptest.Server, user, pass string) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{
		Host:     u.Hostname(),
		Port:     port,
		Username: user,
		Password: pass,
		Timeout:  2 * time.Second,
	}, log)
}

func TestCheckReachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := testClient(t, srv, "", "")
	require.True(t, c.CheckReachable(context.Background()))
}

func TestCheckReachableRetriesThenFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := testClient(t, srv, "", "")
	srv.Close()

	attempts := 0
	c.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		attempts++
		return nil, fmt.Errorf("connection refused")
	}
	require.False(t, c.CheckReachable(context.Background()))
	require.Equal(t, reachabilityAttempts, attempts)
}

func TestCheckReachableSucceedsAfterRetry(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := testClient(t, srv, "", "")
	realDial := c.dial
	attempts := 0
	c.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		attempts++
		if attempts < 2 {
			return nil, fmt.Errorf("connection refused")
		}
		return realDial(network, addr, timeout)
	}
	require.True(t, c.CheckReachable(context.Background()))
	require.Equal(t, 2, attempts)
}

func TestRestartFirstMethodSucceeds(t *testing.T) {
	var actions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.Header.Get("SOAPAction")
		actions = append(actions, action)
		if strings.Contains(action, "DeviceInfo") {
			fmt.Fprint(w, deviceInfoResponse)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, srv, "", "")
	ok, err := c.Restart(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	// GetInfo first, then exactly one restart method.
	require.Len(t, actions, 2)
	require.Contains(t, actions[1], "#Reboot")
}

func TestRestartFallsThroughMethods(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("SOAPAction"), "DeviceInfo") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, srv, "", "")
	ok, err := c.Restart(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, calls)
}

func TestRestartAllMethodsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv, "", "")
	ok, err := c.Restart(context.Background())
	// Rejections are responses, not transport faults.
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestartTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := testClient(t, srv, "", "")
	srv.Close()

	ok, err := c.Restart(context.Background())
	require.Error(t, err)
	require.False(t, ok)
}

func TestSoapRequestBasicAuthFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "<ok/>")
	}))
	defer srv.Close()

	c := testClient(t, srv, "admin", "secret")
	status, body, err := c.soapRequest(context.Background(), "/upnp/control/deviceconfig",
		"urn:dslforum-org:service:DeviceConfig:1#Reboot", restartMethods[0].body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<ok/>")
}

const deviceInfoResponse = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
<s:Body>
<u:GetInfoResponse xmlns:u="urn:dslforum-org:service:DeviceInfo:1">
<NewModelName>HomeBox 7590</NewModelName>
<NewSoftwareVersion>7.57</NewSoftwareVersion>
<NewSerialNumber>ABC123456</NewSerialNumber>
</u:GetInfoResponse>
</s:Body>
</s:Envelope>`

func TestDeviceInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, deviceInfoURL, r.URL.Path)
		fmt.Fprint(w, deviceInfoResponse)
	}))
	defer srv.Close()

	c := testClient(t, srv, "", "")
	info, err := c.DeviceInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "HomeBox 7590", info.ModelName)
	require.Equal(t, "7.57", info.SoftwareVersion)
	require.Equal(t, "ABC123456", info.SerialNumber)
}

func TestParseDeviceInfoEmpty(t *testing.T) {
	_, err := parseDeviceInfo("<s:Envelope><s:Body></s:Body></s:Envelope>")
	require.Error(t, err)
}

const descriptionDoc = `<?xml version="1.0"?>
<root xmlns="urn:dslforum-org:device-1-0">
<device>
<serviceList>
<service>
<serviceType>urn:dslforum-org:service:DeviceInfo:1</serviceType>
<controlURL>/upnp/control/deviceinfo</controlURL>
</service>
<service>
<serviceType>urn:dslforum-org:service:DeviceConfig:1</serviceType>
<controlURL>/upnp/control/deviceconfig</controlURL>
</service>
</serviceList>
</device>
</root>`

func TestDiscoverServicesFromDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tr64desc.xml" {
			fmt.Fprint(w, descriptionDoc)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t, srv, "", "")
	services, err := c.DiscoverServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	require.Equal(t, "urn:dslforum-org:service:DeviceConfig:1", services[1].ServiceType)
	require.Equal(t, "/upnp/control/deviceconfig", services[1].ControlURL)
}

func TestDiscoverServicesFallsBackToProbing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tr64desc.xml":
			w.WriteHeader(http.StatusNotFound)
		case "/upnp/control/deviceconfig":
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv, "", "")
	services, err := c.DiscoverServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.Equal(t, "/upnp/control/deviceconfig", services[0].ControlURL)
}
