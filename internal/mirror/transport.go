package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Transport delivers one payload to dest. A nil error means the transmission
// attempt completed; it does not prove the remote side stored anything.
type Transport interface {
	Send(ctx context.Context, dest string, payload Fields) error
}

// StatusError reports a non-success HTTP status from a transport that can
// read responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned status %d", e.Code)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}

// maxErrBody bounds how much of an error response is kept for messages.
const maxErrBody = 200

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrBody))
	return strings.TrimSpace(string(b))
}

// BeaconTransport sends fields as a GET query string and ignores the
// response, like an image beacon. Only failures to transmit are reported.
type BeaconTransport struct {
	Client *http.Client
}

func (b *BeaconTransport) Send(ctx context.Context, dest string, payload Fields) error {
	u, err := url.Parse(dest)
	if err != nil {
		return fmt.Errorf("invalid destination URL: %w", err)
	}
	q := u.Query()
	for k, v := range payload {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := httpClient(b.Client).Do(req)
	if err != nil {
		return fmt.Errorf("beacon request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// PostTransport posts fields as a JSON object directly to the destination.
type PostTransport struct {
	Client *http.Client
}

func (p *PostTransport) Send(ctx context.Context, dest string, payload Fields) error {
	resp, err := postJSON(ctx, httpClient(p.Client), dest, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, Body: snippet(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ProxyTransport posts to a forwarding endpoint that relays the payload to
// the destination and answers with {"success":true,"data":...} or {"error":...}.
type ProxyTransport struct {
	Client   *http.Client
	ProxyURL string
}

// ProxyRequestDestKey is the body field naming the final destination.
const ProxyRequestDestKey = "appsScriptUrl"

// ProxyResponse is the forwarding endpoint's reply.
type ProxyResponse struct {
	Success bool            `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (p *ProxyTransport) Send(ctx context.Context, dest string, payload Fields) error {
	if p.ProxyURL == "" {
		return errors.New("proxy transport has no proxy URL")
	}
	body := make(Fields, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body[ProxyRequestDestKey] = dest

	resp, err := postJSON(ctx, httpClient(p.Client), p.ProxyURL, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var pr ProxyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pr); err != nil {
		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode}
		}
		return fmt.Errorf("decoding proxy response: %w", err)
	}
	if pr.Error != "" {
		return fmt.Errorf("proxy: %s", pr.Error)
	}
	if resp.StatusCode >= 400 || !pr.Success {
		return &StatusError{Code: resp.StatusCode, Body: "proxy did not report success"}
	}
	return nil
}

func postJSON(ctx context.Context, c *http.Client, target string, v any) (*http.Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request failed: %w", err)
	}
	return resp, nil
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

// NewTransport builds the named transport ("beacon", "post" or "proxy").
func NewTransport(name string, c *http.Client, proxyURL string) (Transport, error) {
	switch name {
	case "", "beacon":
		return &BeaconTransport{Client: c}, nil
	case "post":
		return &PostTransport{Client: c}, nil
	case "proxy":
		if proxyURL == "" {
			return nil, errors.New("transport \"proxy\" requires mirror.proxy_url")
		}
		return &ProxyTransport{Client: c, ProxyURL: proxyURL}, nil
	default:
		return nil, fmt.Errorf("unknown mirror transport %q (want beacon, post or proxy)", name)
	}
}

// AckTransportFor returns a transport able to report failures for the
// acknowledged kinds. Beacons cannot, so they fall back to a direct POST.
func AckTransportFor(t Transport, c *http.Client) Transport {
	if _, ok := t.(*BeaconTransport); ok {
		return &PostTransport{Client: c}
	}
	return t
}
