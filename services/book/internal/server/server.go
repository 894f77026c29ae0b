package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
	"bookshelf/services/book/internal/app"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the book service.
type Server struct {
	app     *app.App
	trusted *util.TrustedProxies
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	s := &Server{
		app:     cfg.App,
		trusted: cfg.TrustedProxies,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog("book", s.trusted,
			util.WithRecover(util.WithSecurityHeaders(util.WithCORS(s.mux)))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// books
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w, r)
	case http.MethodPost:
		s.handleCreateBook(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// /api/books/{id}: PUT and DELETE only.
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "Not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		s.handleUpdateBook(w, r, id)
	case http.MethodDelete:
		s.handleDeleteBook(w, r, id)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.app.ListBooks(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBookInput(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	book, err := s.app.CreateBook(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, id string) {
	in, err := decodeBookInput(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	book, err := s.app.UpdateBook(r.Context(), id, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.app.DeleteBook(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Book deleted"})
}

var errInvalidJSON = errors.New("invalid JSON body")

// decodeBookInput reads a JSON object body. Field type problems are left to
// validation so they are reported together with the other field errors.
func decodeBookInput(r *http.Request) (domain.BookInput, error) {
	var in domain.BookInput
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in)
	switch {
	case err == nil:
		return in, nil
	case errors.Is(err, io.EOF):
		return domain.BookInput{}, nil
	default:
		return domain.BookInput{}, errInvalidJSON
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Message: verr.Error(),
			Errors:  verr.Fields,
		})
	case errors.Is(err, errInvalidJSON):
		writeError(w, http.StatusBadRequest, errInvalidJSON.Error())
	case errors.Is(err, app.ErrBookNotFound):
		notFound(w, "Book not found")
	default:
		util.LoggerFromContext(r.Context()).Error("book request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
