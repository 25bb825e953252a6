package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"
)

const soapEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
<s:Body>%s</s:Body>
</s:Envelope>`

// soapRequest posts a SOAP action and returns the HTTP status plus the raw
// response body. A non-nil error means no HTTP response came back at all;
// HTTP-level rejections (401, 500, ...) are reported via the status code.
//
// The client is built with digest auth when credentials are configured. Some
// firmware only does basic auth, so a 401 triggers one retry with basic
// credentials on a fresh unauthenticated client.
func (c *Client) soapRequest(ctx context.Context, serviceURL, action, body string) (int, string, error) {
	status, text, err := c.post(ctx, c.http.R(), serviceURL, action, body)
	if err != nil {
		return 0, "", err
	}
	if status == http.StatusUnauthorized && c.cfg.Username != "" {
		c.log.Warn("Digest authentication rejected, retrying with basic auth", "action", action)
		r := req.C().SetTimeout(c.cfg.Timeout).R().SetBasicAuth(c.cfg.Username, c.cfg.Password)
		return c.post(ctx, r, serviceURL, action, body)
	}
	return status, text, nil
}

func (c *Client) post(ctx context.Context, r *req.Request, serviceURL, action, body string) (int, string, error) {
	resp, err := r.
		SetContext(ctx).
		SetHeader("Content-Type", `text/xml; charset="utf-8"`).
		SetHeader("SOAPAction", fmt.Sprintf("%q", action)).
		SetBodyString(fmt.Sprintf(soapEnvelope, body)).
		Post(c.baseURL + serviceURL)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, resp.String(), nil
}
