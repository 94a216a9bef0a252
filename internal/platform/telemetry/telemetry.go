// Package telemetry counts requests and tracks latency per route, and
// serves the numbers in Prometheus text exposition format. It keeps to
// standard library constructs rather than pulling in a metrics SDK.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// latencyBuckets are upper bounds in seconds for the request histogram.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

type routeKey struct {
	Method string
	Path   string
	Status int
}

type histogram struct {
	counts []uint64
	sum    float64
	total  uint64
}

// Metrics aggregates request counters and latencies. Safe for concurrent
// use.
type Metrics struct {
	mu        sync.Mutex
	requests  map[routeKey]uint64
	latencies map[string]*histogram // method+path
	started   time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:  make(map[routeKey]uint64),
		latencies: make(map[string]*histogram),
		started:   time.Now(),
	}
}

// Observe records one finished request.
func (m *Metrics) Observe(method, path string, status int, elapsed time.Duration) {
	seconds := elapsed.Seconds()
	key := routeKey{Method: method, Path: path, Status: status}
	routeID := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[key]++
	h := m.latencies[routeID]
	if h == nil {
		h = &histogram{counts: make([]uint64, len(latencyBuckets)+1)}
		m.latencies[routeID] = h
	}
	idx := len(latencyBuckets)
	for i, bound := range latencyBuckets {
		if seconds <= bound {
			idx = i
			break
		}
	}
	h.counts[idx]++
	h.sum += seconds
	h.total++
}

// Middleware observes every request routed through echo.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			m.Observe(c.Request().Method, c.Path(), status, time.Since(start))
			return err
		}
	}
}

// Handler serves the metrics in Prometheus text format.
func (m *Metrics) Handler(c echo.Context) error {
	var b strings.Builder

	m.mu.Lock()
	b.WriteString("# HELP caresync_http_requests_total Total HTTP requests.\n")
	b.WriteString("# TYPE caresync_http_requests_total counter\n")
	keys := make([]routeKey, 0, len(m.requests))
	for k := range m.requests {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		return keys[i].Status < keys[j].Status
	})
	for _, k := range keys {
		fmt.Fprintf(&b, "caresync_http_requests_total{method=%q,path=%q,status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, m.requests[k])
	}

	b.WriteString("# HELP caresync_http_request_duration_seconds Request latency.\n")
	b.WriteString("# TYPE caresync_http_request_duration_seconds histogram\n")
	routes := make([]string, 0, len(m.latencies))
	for r := range m.latencies {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	for _, route := range routes {
		h := m.latencies[route]
		var cumulative uint64
		for i, bound := range latencyBuckets {
			cumulative += h.counts[i]
			fmt.Fprintf(&b, "caresync_http_request_duration_seconds_bucket{route=%q,le=\"%g\"} %d\n",
				route, bound, cumulative)
		}
		fmt.Fprintf(&b, "caresync_http_request_duration_seconds_bucket{route=%q,le=\"+Inf\"} %d\n",
			route, h.total)
		fmt.Fprintf(&b, "caresync_http_request_duration_seconds_sum{route=%q} %g\n", route, h.sum)
		fmt.Fprintf(&b, "caresync_http_request_duration_seconds_count{route=%q} %d\n", route, h.total)
	}

	fmt.Fprintf(&b, "# HELP caresync_uptime_seconds Seconds since process start.\n")
	fmt.Fprintf(&b, "# TYPE caresync_uptime_seconds gauge\n")
	fmt.Fprintf(&b, "caresync_uptime_seconds %g\n", time.Since(m.started).Seconds())
	m.mu.Unlock()

	return c.String(http.StatusOK, b.String())
}
