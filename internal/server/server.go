// Package server exposes the dashboard pages over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/dashboard"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/render"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/source"
)

// Pages is what the server needs from dashboard.Builder.
type Pages interface {
	Build(ctx context.Context, page, highlight string) (*render.Page, error)
	Schools(ctx context.Context, page string) ([]string, error)
	Reset()
}

// App holds the router and its dependencies.
type App struct {
	pages  Pages
	log    *slog.Logger
	router *chi.Mux
}

// NewApp wires the routes.
func NewApp(pages Pages, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		pages:  pages,
		log:    logger.With("component", "server"),
		router: chi.NewRouter(),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/", a.handleIndex)
	a.router.Get("/pages/{page}", a.handlePageHTML)

	a.router.Get("/api/pages", a.handleListPages)
	a.router.Get("/api/pages/{page}", a.handlePageJSON)
	a.router.Get("/api/pages/{page}/schools", a.handleSchools)
	a.router.Post("/api/refresh", a.handleRefresh)

	a.router.Handle("/metrics", promhttp.Handler())
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/pages/"+dashboard.PageBAC, http.StatusFound)
}

func (a *App) handleListPages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"pages": dashboard.Pages})
}

func (a *App) handlePageJSON(w http.ResponseWriter, r *http.Request) {
	p, err := a.pages.Build(r.Context(), chi.URLParam(r, "page"), r.URL.Query().Get("highlight"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) handlePageHTML(w http.ResponseWriter, r *http.Request) {
	p, err := a.pages.Build(r.Context(), chi.URLParam(r, "page"), r.URL.Query().Get("highlight"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(render.FormatHTML))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(render.HTML(p))
}

func (a *App) handleSchools(w http.ResponseWriter, r *http.Request) {
	names, err := a.pages.Schools(r.Context(), chi.URLParam(r, "page"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"schools": names})
}

func (a *App) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.pages.Reset()
	a.log.Info("caches reset", "request_id", middleware.GetReqID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors to status codes.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var (
		unknown  *dashboard.UnknownPageError
		fetchErr *source.FetchError
	)
	switch {
	case errors.As(err, &unknown):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		status = 499
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
