// Package web serves the library over a JSON HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hiansit/ankiflow/internal/backup"
	"github.com/hiansit/ankiflow/internal/library"
	"github.com/hiansit/ankiflow/internal/storage"
)

// maxBodySize bounds request bodies, which can carry whole decks.
const maxBodySize = 16 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	lib    *library.Library
	router *chi.Mux
	logger *slog.Logger

	// mu guards session; a Session is not safe for concurrent use.
	mu      sync.Mutex
	session *library.Session
}

// NewServer creates and configures a new server.
func NewServer(lib *library.Library, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		lib:    lib,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(s.requestLogger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/subjects", s.handleListSubjects)
		r.Post("/subjects", s.handleCreateSubject)
		r.Patch("/subjects/{id}", s.handleUpdateSubject)
		r.Delete("/subjects/{id}", s.handleDeleteSubject)
		r.Get("/subjects/{id}/items", s.handleListItems)
		r.Post("/subjects/{id}/items", s.handleImportItems)
		r.Get("/subjects/{id}/export", s.handleExport)

		r.Post("/backups", s.handleRestore)

		r.Put("/items/{id}", s.handleUpdateItem)
		r.Delete("/items/{id}", s.handleDeleteItem)
		r.Post("/items/{id}/grade", s.handleGrade)

		r.Post("/session", s.handleStartSession)
		r.Get("/session/next", s.handleNext)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps library errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, backup.ErrInvalidFormat), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrBlocked):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, chi.URLParam(r, "id"))
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
