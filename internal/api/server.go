package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/tailored/internal/pipeline"
	"github.com/MikeSquared-Agency/tailored/internal/tracker"
)

// Broker reports the health of the event bus. *hermes.Client satisfies it.
type Broker interface {
	Connected() bool
}

type Server struct {
	router  *chi.Mux
	port    int
	engine  *pipeline.Engine
	tracker *tracker.Tracker
	broker  Broker
	logger  *slog.Logger
	http    *http.Server
}

func NewServer(port int, apiToken string, engine *pipeline.Engine, tr *tracker.Tracker, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		engine:  engine,
		tracker: tr,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/tailored/status", s.status)

		r.Post("/decisions", s.decide)
		r.Post("/decisions/simulate", s.simulate)
		r.Get("/sessions/{visitorID}/decision", s.sessionDecision)
		r.Get("/sessions/{visitorID}/stream", s.sessionStream)

		r.Post("/events", s.trackEvent)
		r.Get("/analytics", s.analytics)

		r.Get("/templates", s.listTemplates)
		r.Get("/templates/{templateID}", s.getTemplate)
		r.Get("/assets", s.listAssets)
		r.Get("/ctas", s.listCTAs)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	addr := s.http.Addr
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

// SetBroker makes status report the event bus connection. Without a broker
// status reports nats_connected false.
func (s *Server) SetBroker(b Broker) {
	s.broker = b
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "tailored",
		"ai_enabled":     s.engine.AIEnabled(),
		"ai_provider":    s.engine.AIProvider(),
		"sessions":       s.engine.Sessions(),
		"nats_connected": s.broker != nil && s.broker.Connected(),
	})
}
