// Package server provides the read-only HTTP API over the card database.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/nebula-collection/nebula/internal/store"
)

// Server serves the card query API.
type Server struct {
	store *store.Store
	port  int
}

// New creates a Server over the given store.
func New(s *store.Store, port int) *Server {
	if port == 0 {
		port = 8000
	}
	return &Server{store: s, port: port}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Encoding", "Content-Type"},
	})
	r.Use(c.Handler)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/cards", s.handleCards)
	r.Get("/card/{number}", s.handleCard)
	r.Get("/search", s.handleSearch)
	r.Get("/stats", s.handleStats)

	return r
}

// ListenAndServe starts the HTTP server. Blocks.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("nebula api listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Welcome to the Nebula API for ULTRAMAN!",
		"cards":           "/cards",
		"cards by number": "/card/{number}",
		"search":          "/search?q={query}",
		"stats":           "/stats",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cards, err := s.store.ListCards(r.Context(), f)
	if errors.Is(err, store.ErrInvalidLimit) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	c, err := s.store.GetCard(r.Context(), number)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing query parameter q"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, store.ErrInvalidLimit)
			return
		}
		limit = n
	}

	cards, err := s.store.SearchCards(r.Context(), q, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// filterFromQuery maps query parameters onto a typed store.Filter. Typed
// fields that fail to parse are a validation error, not a crash.
func filterFromQuery(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()

	f := store.Filter{
		Rarity:        q.Get("rarity"),
		Type:          q.Get("type"),
		Feature:       q.Get("feature"),
		CharacterName: q.Get("character_name"),
		Number:        q.Get("number"),
		Level:         q.Get("level"),
		Round:         q.Get("round"),
	}

	if v := q.Get("publication_year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("publication_year must be an integer, got %q", v)
		}
		f.PublicationYear = &year
	}
	if v := q.Get("errata_enable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("errata_enable must be a boolean, got %q", v)
		}
		f.ErrataOnly = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("limit must be an integer, got %q", v)
		}
		f.Limit = &n
	}

	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
