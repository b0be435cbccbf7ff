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
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every registered dependency check with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	checks["rate_limiter"] = fmt.Sprintf("ok (%d clients)", s.limiter.ActiveClients())

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	type metric struct {
		name, help, kind string
		value            float64
	}
	metrics := []metric{
		{"http_requests_total", "Total number of HTTP requests", "counter", float64(traceMetrics.TotalRequests)},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", float64(traceMetrics.ServerErrors)},
		{"http_response_time_avg_microseconds", "Mean response time", "gauge", float64(traceMetrics.AverageResponseTime)},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", float64(rateLimitMetrics.TotalHits)},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", float64(rateLimitMetrics.ClientCount)},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", float64(securityMetrics.SuspiciousRequests)},
		{"invalid_client_ip_total", "Forwarded client addresses that failed to parse", "counter", float64(securityMetrics.InvalidIPAttempts)},
		{"uptime_seconds", "Application uptime in seconds", "gauge", time.Since(s.started).Seconds()},
	}
	if s.cacheStats != nil {
		st := s.cacheStats()
		metrics = append(metrics,
			metric{"overview_cache_hits_total", "Overview cache hits", "counter", float64(st.Hits)},
			metric{"overview_cache_misses_total", "Overview cache misses", "counter", float64(st.Misses)},
			metric{"overview_cache_evictions_total", "Overview entries evicted for capacity", "counter", float64(st.Evictions)},
			metric{"overview_cache_expired_total", "Overview entries dropped after their TTL", "counter", float64(st.Expired)},
		)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].name < metrics[j].name })

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %g\n\n", m.name, m.value)
	}
}

// handleSession echoes the authenticated user and hands out a renewed token.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	token, exp, err := s.sessions.Issue(user)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"userId":    user,
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	}).Write(w)
}
