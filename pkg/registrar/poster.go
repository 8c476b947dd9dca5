package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"go.lumeweb.com/monitoring-registrar/pkg/build"
	"go.lumeweb.com/monitoring-registrar/pkg/config"
	"io"
	"net"
	"net/http"
	"time"
)

// HTTPPoster sends payloads as JSON POST requests.
// Any HTTP status counts as delivered; only transport errors are reported.
type HTTPPoster struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPPoster creates a poster whose connect and read phases are bounded by
// timeout. A non-positive timeout falls back to config.DefaultTimeout.
func NewHTTPPoster(timeout time.Duration) *HTTPPoster {
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return &HTTPPoster{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   2 * timeout,
		},
		timeout: timeout,
	}
}

// NewHTTPPosterWithClient wraps an existing client
func NewHTTPPosterWithClient(client *http.Client) *HTTPPoster {
	return &HTTPPoster{httpClient: client, timeout: client.Timeout}
}

// Timeout returns the timeout applied to the connect and read phases
func (p *HTTPPoster) Timeout() time.Duration {
	return p.timeout
}

func (p *HTTPPoster) Post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
