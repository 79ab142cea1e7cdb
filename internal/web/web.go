// Package web renders the daybook dashboard from embedded templates and
// serves the embedded static assets.
package web

import (
	"bytes"
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daybook/internal/api"
	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/daycount"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/journalservice"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// maxFormBytes bounds form submissions.
const maxFormBytes = 128 << 10

type pageData struct {
	Counter   daycount.Snapshot
	Entries   []journal.Entry
	Tags      []index.TagCount
	Stats     journalservice.Stats
	Error     string
	DateInput string
	TextInput string
	Auth      bool
}

type loginData struct {
	Error string
}

// Handler serves the HTML pages.
type Handler struct {
	svc    *journalservice.Service
	tmpl   *template.Template
	logger *slog.Logger
	token  string
}

// Option configures a Handler.
type Option func(*Handler)

// WithToken puts the pages behind a login form that checks token and stores
// it in the api.TokenCookie cookie. An empty token leaves the pages open.
func WithToken(token string) Option {
	return func(h *Handler) { h.token = token }
}

// NewHandler parses the embedded templates.
func NewHandler(svc *journalservice.Service, logger *slog.Logger, opts ...Option) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"stamp": stamp,
		"iso":   func(t time.Time) string { return t.Format(time.RFC3339) },
		"day":   func(t time.Time) string { return t.Format(time.DateOnly) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, tmpl: tmpl, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "undated"
	}
	return t.Format("2006-01-02 15:04")
}

// Routes mounts the pages and static assets on r.
func (h *Handler) Routes(r chi.Router) {
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireLogin)
		r.Get("/", h.Index)
		r.Post("/start-date", h.SetStartDate)
		r.Post("/journal", h.AppendEntry)
	})
}

func (h *Handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token == "" || api.Authorized(r, h.token) {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodGet {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// LoginPage renders the token form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, http.StatusOK, loginData{})
}

// Login checks the submitted token and stores it in a cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, loginData{Error: "could not read form"})
		return
	}
	got := r.PostFormValue("token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		h.logger.Warn("login rejected", slog.String("remote", r.RemoteAddr))
		h.renderLogin(w, http.StatusUnauthorized, loginData{Error: "invalid token"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    got,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears the token cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, status int, data loginData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "login.html", data); err != nil {
		h.logger.Error("render failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Index renders the dashboard.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

// SetStartDate handles the start date form.
func (h *Handler) SetStartDate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "could not read form"})
		return
	}
	raw := r.PostFormValue("start_date")
	if _, err := h.svc.SetStartDate(r.Context(), raw); err != nil {
		h.fail(w, r, err, pageData{DateInput: raw})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// AppendEntry handles the journal form.
func (h *Handler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "could not read form"})
		return
	}
	text := r.PostFormValue("text")
	if _, err := h.svc.Append(r.Context(), text); err != nil {
		h.fail(w, r, err, pageData{TextInput: text})
		return
	}
	http.Redirect(w, r, "/#journal", http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, data pageData) {
	if errors.Is(err, apperr.ErrInvalidInput) {
		data.Error = err.Error()
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	h.logger.Error("form submit failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	ctx := r.Context()
	snap, err := h.svc.Snapshot(ctx)
	if err != nil {
		h.logger.Error("counter snapshot failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	entries, err := h.svc.Entries(ctx)
	if err != nil {
		h.logger.Error("list entries failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	tags, err := h.svc.Tags(ctx)
	if err != nil {
		// The index is optional for the page.
		h.logger.Warn("tag counts unavailable", slog.String("error", err.Error()))
	}
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.logger.Warn("journal stats unavailable", slog.String("error", err.Error()))
	}
	data.Counter = snap
	data.Stats = stats
	data.Entries = entries
	data.Tags = tags
	data.Auth = h.token != ""

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.logger.Error("render failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
