package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/starford/daybook/internal/journalservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *journalservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *journalservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxEntryBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// GetStartDate handles GET /api/start-date.
//
//	@Summary		Get the active start date
//	@Tags			counter
//	@Produce		json
//	@Success		200	{object}	StartDateResponse
//	@Security		BearerAuth
//	@Router			/start-date [get]
func (h *Handler) GetStartDate(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeError(w, "get start date", err)
		return
	}
	writeJSON(w, http.StatusOK, StartDateResponse{StartDate: snap.StartDate, Days: snap.Days})
}

// PutStartDate handles PUT /api/start-date.
//
//	@Summary		Change the start date
//	@Tags			counter
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartDateRequest	true	"New start date"
//	@Success		200		{object}	StartDateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/start-date [put]
func (h *Handler) PutStartDate(w http.ResponseWriter, r *http.Request) {
	var req StartDateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	snap, err := h.svc.SetStartDate(r.Context(), req.StartDate)
	if err != nil {
		writeError(w, "set start date", err)
		return
	}
	writeJSON(w, http.StatusOK, StartDateResponse{StartDate: snap.StartDate, Days: snap.Days})
}

// Days handles GET /api/days.
//
//	@Summary		Count days since a date
//	@Tags			counter
//	@Produce		json
//	@Param			date	query		string	false	"Target date (YYYY-MM-DD); defaults to the start date"
//	@Success		200		{object}	DaysResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days [get]
func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	days, target, err := h.svc.DaysSince(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, "days", err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Date: target.Format(time.DateOnly), Days: days})
}

// Elapsed handles GET /api/elapsed.
//
//	@Summary		Time elapsed since the start date
//	@Tags			counter
//	@Produce		json
//	@Success		200	{object}	ElapsedResponse
//	@Security		BearerAuth
//	@Router			/elapsed [get]
func (h *Handler) Elapsed(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeError(w, "elapsed", err)
		return
	}
	writeJSON(w, http.StatusOK, ElapsedResponse{
		StartDate: snap.StartDate,
		Elapsed:   snap.Elapsed,
		Display:   snap.Elapsed.String(),
	})
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List journal entries in file order
//	@Tags			journal
//	@Produce		json
//	@Param			limit	query		int	false	"Return only the last N entries"
//	@Success		200		{object}	EntriesResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Latest(r.Context(), limit)
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Entries: entries})
}

// CreateEntry handles POST /api/entries.
//
//	@Summary		Append a journal entry
//	@Tags			journal
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEntryRequest	true	"Entry text"
//	@Success		201		{object}	Entry
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	e, err := h.svc.Append(r.Context(), req.Text)
	if err != nil {
		writeError(w, "append entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Search handles GET /api/search.
//
//	@Summary		Search journal entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Tags handles GET /api/tags.
//
//	@Summary		Tag counts across the journal
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// Coach handles GET /api/coach.
//
//	@Summary		Coaching suggestion from the last day of entries
//	@Tags			coach
//	@Produce		json
//	@Success		200	{object}	CoachResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/coach [get]
func (h *Handler) Coach(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Suggest(r.Context())
	if err != nil {
		writeError(w, "coach", err)
		return
	}
	writeJSON(w, http.StatusOK, CoachResponse{Suggestion: text})
}

// Stats handles GET /api/stats.
//
//	@Summary		Journal size and entry count
//	@Tags			journal
//	@Produce		json
//	@Success		200	{object}	journalservice.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
