package browser

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// LoadOptions tunes WaitLoad.
type LoadOptions struct {
	Timeout            time.Duration
	PollInterval       time.Duration
	MinimumWait        time.Duration
	WaitForNetworkIdle bool
}

// DefaultLoadOptions are the options used by the CLI.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Timeout:            10 * time.Second,
		PollInterval:       50 * time.Millisecond,
		MinimumWait:        100 * time.Millisecond,
		WaitForNetworkIdle: true,
	}
}

// LoadResult reports how WaitLoad ended.
type LoadResult struct {
	Success         bool          `json:"success"`
	ReadyState      string        `json:"ready_state"`
	PendingRequests int           `json:"pending_requests"`
	WaitTime        time.Duration `json:"-"`
	WaitTimeMS      int64         `json:"wait_time_ms"`
	TimedOut        bool          `json:"timed_out"`
}

// DefaultAdPatterns are url fragments of requests that never count as
// pending: ads, analytics and beacons keep long-lived connections open.
var DefaultAdPatterns = []string{
	"doubleclick.net", "googlesyndication.com", "googletagmanager.com",
	"google-analytics.com", "facebook.net", "connect.facebook.net",
	"analytics", "ads", "tracking", "pixel", "hotjar.com", "clarity.ms",
	"mixpanel.com", "segment.com", "newrelic.com", "nr-data.net",
	"/tracker/", "/collector/", "/beacon/", "/telemetry/", "/log/",
	"/events/", "/track.", "/metrics/",
}

const (
	maxPendingURL   = 500
	staleRequest    = 10 * time.Second
	slowNonCritical = 3 * time.Second
)

var (
	nonCriticalTypes = map[string]bool{"img": true, "image": true, "icon": true, "font": true}
	imageURL         = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg|ico)(\?|$)`)
)

type loadState struct {
	ReadyState string           `json:"readyState"`
	Pending    []pendingRequest `json:"pending"`
}

type pendingRequest struct {
	URL        string `json:"url"`
	DurationMS int64  `json:"durationMs"`
	Type       string `json:"type"`
}

// criticalPending keeps the in-flight requests worth waiting for.
func criticalPending(reqs []pendingRequest) []pendingRequest {
	var out []pendingRequest
	for _, r := range reqs {
		if isAdURL(r.URL) {
			continue
		}
		if strings.HasPrefix(r.URL, "data:") || len(r.URL) > maxPendingURL {
			continue
		}
		d := time.Duration(r.DurationMS) * time.Millisecond
		if d > staleRequest {
			continue
		}
		if d > slowNonCritical && (nonCriticalTypes[r.Type] || imageURL.MatchString(r.URL)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isAdURL(url string) bool {
	for _, p := range DefaultAdPatterns {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

func (s loadState) ready(opts LoadOptions) bool {
	return s.ReadyState == "complete" && (!opts.WaitForNetworkIdle || len(s.Pending) == 0)
}

// WaitLoad polls document.readyState and the resource timing entries
// until the page is complete and, optionally, the network is idle. A
// timeout is reported in the result, not as an error.
func (p *Page) WaitLoad(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	start := time.Now()
	var last loadState
	result := func(ok bool) LoadResult {
		wait := time.Since(start)
		return LoadResult{
			Success:         ok,
			ReadyState:      orUnknown(last.ReadyState),
			PendingRequests: len(last.Pending),
			WaitTime:        wait,
			WaitTimeMS:      wait.Milliseconds(),
			TimedOut:        !ok,
		}
	}

	if opts.MinimumWait > 0 {
		select {
		case <-ctx.Done():
			return LoadResult{}, ctx.Err()
		case <-time.After(opts.MinimumWait):
		}
	}

	for time.Since(start) < opts.Timeout {
		res, err := p.rod.Context(ctx).Eval(loadJS)
		if err == nil {
			var st loadState
			if err := res.Value.Unmarshal(&st); err == nil {
				st.Pending = criticalPending(st.Pending)
				last = st
				if st.ready(opts) {
					return result(true), nil
				}
			}
		} else if ctx.Err() != nil {
			return LoadResult{}, ctx.Err()
		}
		// Evaluation fails while the page navigates; keep polling.
		select {
		case <-ctx.Done():
			return LoadResult{}, ctx.Err()
		case <-time.After(opts.PollInterval):
		}
	}
	p.logger.Warn("browser: page load timed out",
		"target", p.TargetID(), "ready_state", last.ReadyState, "pending", len(last.Pending))
	return result(false), nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
