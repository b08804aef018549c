package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.broker == nil {
		checks["events"] = "not_configured"
	} else if state, _ := s.broker.CircuitState(); state != 0 {
		// An open breaker degrades event delivery only; requests still succeed.
		checks["events"] = "degraded"
	} else {
		checks["events"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_request_duration_avg_seconds", "gauge", "Mean request duration",
		traceMetrics.AverageResponseTime().Seconds())
	metric("rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Rejected)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "counter", "Suspicious requests rejected", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))

	if len(s.caches) > 0 {
		names := make([]string, 0, len(s.caches))
		for name := range s.caches {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "# HELP cache_entries Entries held by each cache\n# TYPE cache_entries gauge\n")
		for _, name := range names {
			fmt.Fprintf(w, "cache_entries{cache=%q} %d\n", name, s.caches[name].Size())
		}
	}

	if s.broker != nil {
		state, failures := s.broker.CircuitState()
		metric("events_circuit_state", "gauge", "Publisher circuit breaker state (0 closed, 1 open, 2 half-open)", state)
		metric("events_publish_failures", "gauge", "Consecutive publish failures", failures)
	}
}
