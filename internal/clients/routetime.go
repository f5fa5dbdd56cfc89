package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Coord struct {
	Lat float64
	Lng float64
}

// RouteTimeProvider returns the point-to-point travel duration in minutes.
// Recalculation swallows its failures (a routing outage must never abort an edit),
// so implementations only need to report the error, not retry forever.
type RouteTimeProvider interface {
	TravelTime(ctx context.Context, origin, dest Coord, mode string) (int, error)
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Body)
}

type HTTPRouteTimeProvider struct {
	session *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPRouteTimeProvider(baseURL, apiKey string) *HTTPRouteTimeProvider {
	return &HTTPRouteTimeProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (p *HTTPRouteTimeProvider) TravelTime(ctx context.Context, origin, dest Coord, mode string) (int, error) {
	q := url.Values{}
	q.Set("origin", formatCoord(origin))
	q.Set("destination", formatCoord(dest))
	q.Set("mode", mode)

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/durations?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", p.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("route duration %s -> %s: %w", formatCoord(origin), formatCoord(dest), err)
	}
	defer resp.Body.Close()

	var out struct {
		DurationMinutes int `json:"durationMinutes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode route duration: %w", err)
	}
	return out.DurationMinutes, nil
}

func (p *HTTPRouteTimeProvider) do(req *http.Request) (*http.Response, error) {
	resp, err := p.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429/5xx) with
// exponential backoff while respecting context cancellation.
func (p *HTTPRouteTimeProvider) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := p.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func formatCoord(c Coord) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}
