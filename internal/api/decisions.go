package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/tailored/internal/decision"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/pipeline"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

// DecideRequest is the page context the embedding snippet reports.
type DecideRequest struct {
	URL           string `json:"url"`
	Referrer      string `json:"referrer"`
	UserAgent     string `json:"user_agent"`
	ViewportWidth *int   `json:"viewport_width,omitempty"`
	Hour          *int   `json:"hour,omitempty"`
	WaitForAI     bool   `json:"wait_for_ai"`
}

// SimulateRequest replays the pipeline for the caller's session with a
// forced intent and/or field overrides.
type SimulateRequest struct {
	Intent string `json:"intent,omitempty"`
	signals.Overrides
	WaitForAI bool `json:"wait_for_ai"`
}

// decide handles POST /api/v1/decisions
func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	cycle, err := s.engine.Run(pipeline.Request{
		VisitorID: visitorID(w, r),
		Env: signals.Environment{
			URL:       req.URL,
			Referrer:  req.Referrer,
			UserAgent: req.UserAgent,
		},
		Overrides: signals.Overrides{
			ViewportWidth: req.ViewportWidth,
			Hour:          req.Hour,
		},
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondCycle(w, r, cycle, req.WaitForAI)
}

// simulate handles POST /api/v1/decisions/simulate
func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	preq := pipeline.Request{
		VisitorID: visitorID(w, r),
		Overrides: req.Overrides,
	}
	if req.Intent != "" {
		forced, ok := intent.Parse(req.Intent)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown intent %q", req.Intent))
			return
		}
		preq.Force = &forced
	}

	cycle, err := s.engine.Simulate(preq)
	switch {
	case errors.Is(err, pipeline.ErrUnknownIntent):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondCycle(w, r, cycle, req.WaitForAI)
}

// respondCycle writes the rules decision, or the settled decision when the
// caller asked to wait. A caller that disconnects while waiting gets nothing.
func (s *Server) respondCycle(w http.ResponseWriter, r *http.Request, cycle *pipeline.Cycle, wait bool) {
	if !wait {
		writeJSON(w, http.StatusOK, cycle.Rules)
		return
	}
	final, err := cycle.Wait(r.Context())
	if err != nil {
		s.logger.Debug("client left before arbitration settled", "visitor_id", cycle.VisitorID, "error", err)
	}
	writeJSON(w, http.StatusOK, final)
}

// sessionDecision handles GET /api/v1/sessions/{visitorID}/decision
func (s *Server) sessionDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "visitorID")
	obj, ok := s.engine.Current(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no decision for visitor")
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// sessionStream handles GET /api/v1/sessions/{visitorID}/stream. It sends
// the current decision, then every decision applied afterwards, as
// server-sent events. A slow reader only ever sees the newest pending one.
func (s *Server) sessionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	id := chi.URLParam(r, "visitorID")

	updates := make(chan decision.Object, 1)
	unsubscribe, err := s.engine.Subscribe(id, func(obj decision.Object) {
		select {
		case updates <- obj:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- obj
		}
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if obj, ok := s.engine.Current(id); ok {
		if err := writeEvent(w, obj); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case obj := <-updates:
			if err := writeEvent(w, obj); err != nil {
				s.logger.Debug("decision stream closed", "visitor_id", id, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, obj decision.Object) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: decision\ndata: %s\n\n", data)
	return err
}
