// Package httpapi serves the admin surface of a running stage: status,
// phrase management, scroll control, journal queries, and page
// outlining. Everything except the health check sits behind basic auth.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/domstage/internal/cues"
	"github.com/hazyhaar/domstage/internal/journal"
	"github.com/hazyhaar/domstage/internal/outline"
	"github.com/hazyhaar/domstage/internal/stage"
)

// StageController is the slice of a running stage the API drives.
type StageController interface {
	Status() stage.Status
	Phrases() []string
	SetPhrases(phrases []string) error
	ScrollTop() error
}

// Config assembles the API dependencies. Journal, Cues and Outline are
// optional; their endpoints answer 404 when absent.
type Config struct {
	Stage   StageController
	Journal *journal.Journal
	Cues    *cues.Store
	Outline *outline.Fetcher

	// Username and PasswordHash (bcrypt) protect everything under
	// /api. Leaving them empty disables auth; only do that on a
	// loopback listener.
	Username     string
	PasswordHash string

	Logger *slog.Logger
}

// Server is the admin HTTP API.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates the API server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: cfg.Logger}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Use(maxBody)
	r.Use(traceRequests(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if s.cfg.Username != "" && s.cfg.PasswordHash != "" {
			r.Use(basicAuth(s.cfg.Username, s.cfg.PasswordHash))
		} else {
			s.logger.Warn("api: basic auth disabled, no credentials configured")
		}

		r.Get("/status", s.handleStatus)
		r.Get("/phrases", s.handleGetPhrases)
		r.Put("/phrases", s.handlePutPhrases)
		r.Post("/scroll-top", s.handleScrollTop)
		r.Get("/sessions", s.handleSessions)
		r.Get("/sessions/{sessionID}/events", s.handleSessionEvents)
		r.Get("/outline", s.handleOutline)
	})

	return r
}

// ListenAndServe runs the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("api: listening", "addr", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Stage.Status())
}

func (s *Server) handleGetPhrases(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Cues != nil {
		phrases, err := s.cfg.Cues.Phrases(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"phrases": phrases, "source": "cues"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"phrases": s.cfg.Stage.Phrases(), "source": "stage"})
}

func (s *Server) handlePutPhrases(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phrases []string `json:"phrases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// With a cue store the sheet is the single source of truth: write
	// there and let the watcher swap the running list. Without one,
	// swap the stage directly.
	if s.cfg.Cues != nil {
		if err := s.cfg.Cues.Replace(r.Context(), req.Phrases); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "scheduled", "count": len(req.Phrases)})
		return
	}
	if err := s.cfg.Stage.SetPhrases(req.Phrases); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "applied", "count": len(req.Phrases)})
}

func (s *Server) handleScrollTop(w http.ResponseWriter, _ *http.Request) {
	if err := s.cfg.Stage.ScrollTop(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal not configured"})
		return
	}
	sessions, err := s.cfg.Journal.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []journal.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal not configured"})
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := s.cfg.Journal.Recent(r.Context(), sessionID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Outline == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "outline not configured"})
		return
	}
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url parameter required"})
		return
	}
	o, err := s.cfg.Outline.Outline(r.Context(), rawURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
