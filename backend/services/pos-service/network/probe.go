package network

import (
	"context"
	"net/http"
	"time"
)

// Probe reports whether the order backend is reachable right now.
type Probe interface {
	Check(ctx context.Context) bool
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) Check(ctx context.Context) bool { return f(ctx) }

// HTTPProbe treats any 2xx from a health endpoint as online.
type HTTPProbe struct {
	url    string
	client *http.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProbe) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	// probes are infrequent; do not hold idle connections between them
	req.Close = true
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
