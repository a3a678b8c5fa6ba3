package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bilancio/internal/log"
)

// handleEvents streams the household summary of the current month as
// server-sent events. A fresh summary is pushed after every change to one of
// the household's collections; comments keep idle connections open.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h := household(r)
	rc := http.NewResponseController(w)

	changes, cancel := s.households.Subscribe(h)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := s.logger.With(log.FieldHousehold, h)
	logger.DebugContext(ctx, "Event stream opened")
	defer logger.DebugContext(ctx, "Event stream closed")

	push := func() bool {
		key := s.households.CurrentMonth()
		sum, err := s.summary(ctx, h, key)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to build summary for stream", log.FieldError, err)
			return writeEvent(w, rc, "error", map[string]string{"error": "summary unavailable"}) == nil
		}
		return writeEvent(w, rc, "summary", summaryResponse{Summary: sum, NextDue: sum.NextDue(s.agendaPreview)}) == nil
	}

	if !push() {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			// The writer invalidates synchronously; drop again in case the
			// change came from another process.
			s.invalidate(h)
			if !push() {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}
