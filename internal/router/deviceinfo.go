package router

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// DeviceInfo is the subset of the router's GetInfo response we care about.
type DeviceInfo struct {
	ModelName       string `json:"model_name"`
	SoftwareVersion string `json:"software_version"`
	SerialNumber    string `json:"serial_number"`
}

const (
	deviceInfoURL    = "/upnp/control/deviceinfo"
	deviceInfoAction = "urn:dslforum-org:service:DeviceInfo:1#GetInfo"
	deviceInfoBody   = `<u:GetInfo xmlns:u="urn:dslforum-org:service:DeviceInfo:1"></u:GetInfo>`
)

// DeviceInfo queries the router's DeviceInfo service. Used for logging before
// a restart and by the check command's verbose output.
func (c *Client) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	status, body, err := c.soapRequest(ctx, deviceInfoURL, deviceInfoAction, deviceInfoBody)
	if err != nil {
		return nil, fmt.Errorf("device info request: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("device info request: HTTP %d", status)
	}
	info, err := parseDeviceInfo(body)
	if err != nil {
		return nil, fmt.Errorf("device info response: %w", err)
	}
	return info, nil
}

// parseDeviceInfo walks the SOAP response tokens and picks out the fields by
// local element name. Vendors prefix the element names differently
// (NewModelName vs ModelName), so matching is by suffix.
func parseDeviceInfo(body string) (*DeviceInfo, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	info := &DeviceInfo{}
	var current string
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
			switch {
			case strings.HasSuffix(current, "ModelName"):
				info.ModelName = val
			case strings.HasSuffix(current, "SoftwareVersion"):
				info.SoftwareVersion = val
			case strings.HasSuffix(current, "SerialNumber"):
				info.SerialNumber = val
			}
		case xml.EndElement:
			current = ""
		}
	}
	if info.ModelName == "" && info.SoftwareVersion == "" && info.SerialNumber == "" {
		return nil, fmt.Errorf("no device fields found in response")
	}
	return info, nil
}
