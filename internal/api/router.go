package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daybook/internal/journalservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journalservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Counter.
	r.Get("/start-date", h.GetStartDate)
	r.Put("/start-date", h.PutStartDate)
	r.Get("/days", h.Days)
	r.Get("/elapsed", h.Elapsed)

	// Journal.
	r.Get("/entries", h.ListEntries)
	r.Post("/entries", h.CreateEntry)
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)
	r.Get("/stats", h.Stats)

	r.Get("/coach", h.Coach)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
