package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/tailored/internal/registry"
	"github.com/MikeSquared-Agency/tailored/internal/tracker"
)

// EventRequest is a presentation-layer event such as hero_shown or cta_click.
type EventRequest struct {
	Type      string         `json:"type"`
	VisitorID string         `json:"visitor_id,omitempty"`
	Data      map[string]any `json:"data"`
}

// trackEvent handles POST /api/v1/events
func (s *Server) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	typ, ok := tracker.ParseEventType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", req.Type))
		return
	}

	id := req.VisitorID
	if !visitorIDPattern.MatchString(id) {
		id = visitorID(w, r)
	}
	s.engine.Track(typ, id, req.Data)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "visitor_id": id})
}

// analytics handles GET /api/v1/analytics
func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	rng, err := tracker.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Analytics(rng))
}

type templateResponse struct {
	registry.TemplateConfig
	ResolvedFromDefault bool `json:"resolved_from_default"`
}

// getTemplate handles GET /api/v1/templates/{templateID}. Unknown ids resolve
// to the default browse template so the hero is never empty.
func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	tpl, ok := registry.ResolveTemplate(id)
	if !ok {
		s.logger.Warn("unknown template requested, serving default", "template", id)
	}
	writeJSON(w, http.StatusOK, templateResponse{TemplateConfig: tpl, ResolvedFromDefault: !ok})
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.Templates())
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.Assets())
}

func (s *Server) listCTAs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.CTAs())
}
