package router

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

// Service is one SOAP control endpoint advertised by the router.
type Service struct {
	ServiceType string `json:"service_type"`
	ControlURL  string `json:"control_url"`
}

// commonEndpoints are probed when the router does not publish a TR-064
// description document. Any HTTP answer at all, including an auth challenge
// or a method rejection, proves the endpoint exists.
var commonEndpoints = []string{
	"/upnp/control/deviceconfig",
	"/upnp/control/deviceinfo",
	"/tr064/upnp/control/deviceconfig",
	"/upnp/control/wandslifconfig1",
	"/upnp/control/wanpppconn1",
}

// DiscoverServices enumerates the router's SOAP services, preferring the
// tr64desc.xml description document and falling back to probing well-known
// control paths.
func (c *Client) DiscoverServices(ctx context.Context) ([]Service, error) {
	services, err := c.fetchDescription(ctx)
	if err == nil && len(services) > 0 {
		c.log.Info("Discovered services from description document", "count", len(services))
		return services, nil
	}
	if err != nil {
		c.log.Warn("Description document unavailable, probing common endpoints", "error", err)
	}
	return c.probeCommonEndpoints(ctx), nil
}

func (c *Client) fetchDescription(ctx context.Context) ([]Service, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + "/tr64desc.xml")
	if err != nil {
		return nil, fmt.Errorf("fetch tr64desc.xml: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tr64desc.xml: HTTP %d", resp.StatusCode)
	}
	return parseDescription(resp.String())
}

// parseDescription pulls serviceType/controlURL pairs out of the device
// description. The document nests services under multiple devices; a flat
// token walk collects them all.
func parseDescription(doc string) ([]Service, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	var services []Service
	var current string
	var svc Service
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" {
				continue
			}
			switch current {
			case "serviceType":
				svc.ServiceType = val
			case "controlURL":
				svc.ControlURL = val
			}
		case xml.EndElement:
			if t.Name.Local == "service" {
				if svc.ServiceType != "" && svc.ControlURL != "" {
					services = append(services, svc)
				}
				svc = Service{}
			}
			current = ""
		}
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("no services in description document")
	}
	return services, nil
}

func (c *Client) probeCommonEndpoints(ctx context.Context) []Service {
	var found []Service
	for _, path := range commonEndpoints {
		resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + path)
		if err != nil {
			continue
		}
		// 405 (SOAP endpoints reject GET), 401 and 500 all count as present.
		switch resp.StatusCode {
		case http.StatusOK, http.StatusMethodNotAllowed, http.StatusUnauthorized, http.StatusInternalServerError:
			found = append(found, Service{ServiceType: "unknown", ControlURL: path})
			c.log.Info("Probed control endpoint", "path", path, "status", resp.StatusCode)
		}
	}
	return found
}
