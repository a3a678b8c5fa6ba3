package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/obligation"
)

// fail logs err with the request context and writes the mapped error
// response. Malformed bodies are 400.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	fields := log.NewFields().
		WithHousehold(household(r), "").
		WithOperation(op).
		WithError(err)

	if errors.Is(err, errBadBody) {
		s.logger.WarnContext(ctx, "Malformed request body", fields.ToSlice()...)
		BadRequestError(err.Error()).Write(w)
		return
	}
	resp := ErrorFrom(err)
	switch resp.statusCode {
	case http.StatusUnprocessableEntity:
		s.logger.WarnContext(ctx, "Rejected invalid request", append(fields.ToSlice(), "error_type", log.ErrorTypeValidation)...)
	case http.StatusNotFound:
		s.logger.DebugContext(ctx, "Record not found", append(fields.ToSlice(), "error_type", log.ErrorTypeNotFound)...)
	default:
		s.logger.ErrorContext(ctx, "Request failed", append(fields.ToSlice(), "error_type", log.ErrorTypeInternal)...)
	}
	resp.Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"cache": map[string]any{"summaries": s.summaries.Size()},
	}
	if _, err := s.households.Households(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["store"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.traceMiddleware.GetMetrics()
	hits, misses := s.summaries.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("summary_cache_hits_total", "counter", "Summary cache hits", hits)
	metric("summary_cache_misses_total", "counter", "Summary cache misses", misses)
	metric("summary_cache_entries", "gauge", "Cached summaries", s.summaries.Size())
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", s.rateLimiter.Hits())
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", s.rateLimiter.ActiveClients())
	metric("suspicious_requests_total", "counter", "Requests rejected as suspicious", s.detector.SuspiciousRequests())
	metric("uptime_seconds", "gauge", "Seconds since start", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleHouseholds(w http.ResponseWriter, r *http.Request) {
	names, err := s.households.Households(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"households": names}).Write(w)
}

// summary returns the cached summary for key, building it on a miss.
func (s *Server) summary(ctx context.Context, h string, key core.MonthKey) (obligation.Summary, error) {
	k := cacheKey(h, "summary", string(key))
	if sum, ok := s.summaries.Get(k); ok {
		return sum, nil
	}
	sum, err := s.households.Summary(ctx, h, key)
	if err != nil {
		return obligation.Summary{}, err
	}
	s.summaries.Set(k, sum)
	return sum, nil
}

type summaryResponse struct {
	obligation.Summary
	NextDue []obligation.AgendaEntry `json:"nextDue"`
}

// handleSummary serves GET .../summary?month=YYYY-MM&preview=n.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := ParseMonthKey(q, "month", s.households.CurrentMonth())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	preview, err := ParseIntParam(q, "preview", s.agendaPreview)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	sum, err := s.summary(r.Context(), household(r), key)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(summaryResponse{Summary: sum, NextDue: sum.NextDue(preview)}).Write(w)
}

type agendaResponse struct {
	MonthKey core.MonthKey             `json:"monthKey"`
	Agenda   []obligation.AgendaEntry  `json:"agenda"`
	Pending  []obligation.AgendaEntry  `json:"pending"`
	Critical *obligation.CriticalAlert `json:"critical,omitempty"`
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	key, err := ParseMonthKey(r.URL.Query(), "month", s.households.CurrentMonth())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	sum, err := s.summary(r.Context(), household(r), key)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(agendaResponse{
		MonthKey: sum.MonthKey,
		Agenda:   sum.Agenda,
		Pending:  sum.Pending(),
		Critical: sum.Critical,
	}).Write(w)
}

// handleProjection serves GET .../projection?from=YYYY-MM-DD&horizon=n with
// an optional draft purchase (amount, installments, card).
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := ParseCalendarDay(q, "from", s.households.Today())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	horizon, err := ParseIntParam(q, "horizon", 0)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	if horizon > 60 {
		s.fail(w, r, log.OpRead, &core.ValidationError{Field: "horizon", Err: errors.New("at most 60 months")})
		return
	}
	hyp, err := ParseHypothetical(q)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	months, err := s.households.Projection(r.Context(), household(r), from, horizon, hyp)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"from": from, "months": months}).Write(w)
}

type obligationResponse struct {
	CardID   string        `json:"cardId"`
	MonthKey core.MonthKey `json:"monthKey"`
	obligation.Obligation
}

func (s *Server) handleCardObligation(w http.ResponseWriter, r *http.Request) {
	key, err := ParseMonthKey(r.URL.Query(), "month", s.households.CurrentMonth())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	cardID := pathVar(r, "id")
	o, err := s.households.CardObligation(r.Context(), household(r), cardID, key)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(obligationResponse{CardID: cardID, MonthKey: key, Obligation: o}).Write(w)
}

func (s *Server) handleCardUsage(w http.ResponseWriter, r *http.Request) {
	key, err := ParseMonthKey(r.URL.Query(), "month", s.households.CurrentMonth())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	u, err := s.households.CardUsage(r.Context(), household(r), pathVar(r, "id"), key)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}
