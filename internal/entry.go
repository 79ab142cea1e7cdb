// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/daybook/internal/api"
	"github.com/starford/daybook/internal/coach"
	"github.com/starford/daybook/internal/daycount"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/journalservice"
	"github.com/starford/daybook/internal/mcpserver"
	"github.com/starford/daybook/internal/metrics"
	"github.com/starford/daybook/internal/sse"
	"github.com/starford/daybook/internal/storage"
	"github.com/starford/daybook/internal/web"
)

const shutdownTimeout = 10 * time.Second

// services holds everything both the HTTP server and the MCP server share.
type services struct {
	logger         *slog.Logger
	files          *storage.FS
	journal        *journal.Store
	db             *index.DB
	svc            *journalservice.Service
	metrics        metrics.Recorder
	metricsHandler http.Handler
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version:   "dev",
		logOutput: os.Stdout,
		clock:     daycount.RealClock{},
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap wires storage, counter, journal, index, metrics and coach.
// publisher may be nil. The caller must close rt.db.
func (app *application) bootstrap(ctx context.Context, publisher journalservice.Publisher) (*services, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Journal.DataDir),
		slog.String("journal_file", cfg.Journal.File),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("start_date", cfg.Counter.StartDate),
		slog.Bool("coach_live", cfg.Coach.APIKey != ""),
		slog.Bool("metrics", cfg.Metrics.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The watcher needs the journal's directory to exist up front.
	if err := os.MkdirAll(filepath.Join(cfg.Journal.DataDir, filepath.Dir(cfg.Journal.File)), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Journal.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	start, err := cfg.Counter.Start()
	if err != nil {
		return nil, fmt.Errorf("init counter: %w", err)
	}
	counter := daycount.NewCounter(files, start, app.clock)
	store := journal.NewStore(files, cfg.Journal.File, app.clock.Now)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	rec, metricsHandler := metrics.New(cfg.Metrics.Enabled)

	coachClient := coach.New(coach.Config{
		APIKey:   cfg.Coach.APIKey,
		BaseURL:  cfg.Coach.BaseURL,
		Model:    cfg.Coach.Model,
		Timeout:  cfg.Coach.Timeout,
		CacheTTL: cfg.Coach.CacheTTL,
	}, coach.WithLogger(logger), coach.WithCacheObserver(rec.ObserveCoachCache))

	svcOpts := []journalservice.Option{
		journalservice.WithLogger(logger),
		journalservice.WithMetrics(rec),
		journalservice.WithCoach(coachClient, cfg.Coach.Goal, cfg.Coach.MaxTokens),
	}
	if publisher != nil {
		svcOpts = append(svcOpts, journalservice.WithPublisher(publisher))
	}
	svc := journalservice.NewService(store, counter, files, db, svcOpts...)

	// Run initial sync.
	if _, err := svc.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &services{
		logger:         logger,
		files:          files,
		journal:        store,
		db:             db,
		svc:            svc,
		metrics:        rec,
		metricsHandler: metricsHandler,
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker. rt is set before anything can publish.
	var rt *services
	broker := sse.NewBroker(
		sse.WithStatsThrottle(2*time.Second),
		sse.WithStats(func() any { return rt.stats() }),
	)
	defer broker.Close()

	rt, err = app.bootstrap(ctx, broker)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	logger := rt.logger

	handler, err := newHTTPHandler(cfg, rt, broker)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Resync the index when the journal is edited outside the app.
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.db, rt.journal, rt.files, logger, rt.svc.Resynced); err != nil {
			logger.Warn("journal watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Long-lived SSE streams would otherwise hold Shutdown open.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

func (rt *services) stats() any {
	st, err := rt.svc.Stats(context.Background())
	if err != nil {
		rt.logger.Warn("stats for live clients failed", slog.String("error", err.Error()))
		return struct{}{}
	}
	return st
}

func newHTTPHandler(cfg *Config, rt *services, broker *sse.Broker) (http.Handler, error) {
	var pageOpts []web.Option
	if cfg.Auth.AuthEnabled() {
		pageOpts = append(pageOpts, web.WithToken(cfg.Auth.Token))
	}
	pages, err := web.NewHandler(rt.svc, rt.logger, pageOpts...)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(rt.metrics))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := rt.svc.Ready(r.Context()); err != nil {
			rt.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	if rt.metricsHandler != nil {
		r.Handle("/metrics", rt.metricsHandler)
	}

	// Mount API routes under /api; the SSE stream shares its auth. The pages
	// use the same token through a login cookie.
	r.Mount("/api", api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	pages.Routes(r)

	return r, nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.bootstrap(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	rt.logger.Info("Starting MCP server on stdio", slog.String("version", app.version))
	if err := mcpserver.New(rt.svc, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
