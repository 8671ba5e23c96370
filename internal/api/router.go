package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-miio/internal/gateway"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/gateways", s.handleListGateways)

		r.Route("/accessories", func(r chi.Router) {
			r.Get("/", s.handleListAccessories)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAccessory)
				r.Get("/characteristics/{service}/{type}", s.handleGetCharacteristic)
				r.Put("/characteristics/{service}/{type}", s.handleSetCharacteristic)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the bridge health. The bridge is degraded while any
// gateway is not attached.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := s.gateways.Statuses()
	status := "ok"
	for _, st := range statuses {
		if st.State == gateway.StateFailed || st.State == gateway.StateUnreachable {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"gateways":       len(statuses),
		"accessories":    len(s.accessories.Accessories()),
		"ws_clients":     s.hub.ClientCount(),
	})
}

// handleListGateways returns every gateway supervisor's status.
func (s *Server) handleListGateways(w http.ResponseWriter, _ *http.Request) {
	statuses := s.gateways.Statuses()
	writeJSON(w, http.StatusOK, map[string]any{
		"gateways": statuses,
		"count":    len(statuses),
	})
}
