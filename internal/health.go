package internal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultHealthTimeout = 5 * time.Second

// Health statuses reported by the readiness endpoint.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ErrCheckTimeout is reported for a check that outlives the probe timeout.
var ErrCheckTimeout = errors.New("health: check timeout")

// CheckFunc reports whether a dependency is usable.
// db.Healthcheck and redis.Healthcheck return one.
type CheckFunc func(ctx context.Context) error

// HealthChecks maps check names to checks.
type HealthChecks map[string]CheckFunc

// HealthReport is the JSON body of the readiness endpoint.
type HealthReport struct {
	Checks map[string]HealthCheck `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

// HealthCheck is the outcome of one named check.
type HealthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, r, http.StatusOK, &HealthReport{Status: StatusHealthy})
	}
}

func readinessHandler(checks HealthChecks, timeout time.Duration, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := RunHealthChecks(r.Context(), checks, timeout, log)
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, r, status, report)
	}
}

// RunHealthChecks runs every check concurrently within timeout. One failing
// check makes the report unhealthy; the others still run to completion.
func RunHealthChecks(ctx context.Context, checks HealthChecks, timeout time.Duration, log *slog.Logger) *HealthReport {
	report := &HealthReport{Status: StatusHealthy}
	if len(checks) == 0 {
		return report
	}
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	report.Checks = make(map[string]HealthCheck, len(checks))

	var g errgroup.Group
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		check := checks[name]
		g.Go(func() error {
			err := check(ctx)
			if err == nil && ctx.Err() != nil {
				err = ErrCheckTimeout
			}
			result := HealthCheck{Status: StatusHealthy}
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = ErrCheckTimeout
				}
				result = HealthCheck{Status: StatusUnhealthy, Error: err.Error()}
				log.WarnContext(ctx, "health check failed", slog.String("check", name), slog.Any("error", err))
			}
			mu.Lock()
			report.Checks[name] = result
			if err != nil {
				report.Status = StatusUnhealthy
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func writeHealth(w http.ResponseWriter, r *http.Request, status int, report *HealthReport) {
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(http.StatusText(status)))
}
