package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxBody = 64 << 10

// Server exposes per-session page CRUD over HTTP/JSON.
type Server struct {
	store   *Store
	host    PageHost
	logger  *slog.Logger
	metrics *metrics
	now     func() time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger. Default: slog.Default().
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer returns a server persisting bindings in store and creating
// targets through host.
func NewServer(store *Store, host PageHost, opts ...ServerOption) *Server {
	s := &Server{
		store:   store,
		host:    host,
		logger:  slog.Default(),
		metrics: newMetrics(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Use(maxJSONBody(maxBody))
	r.Use(traceID(s.logger))

	r.Get("/", s.handleInfo)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/sessions/{sid}/pages", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{name}", s.handleGet)
		r.Delete("/{name}", s.handleDelete)
	})
	return r
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ServerInfo{WSEndpoint: s.host.WSEndpoint()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid := chi.URLParam(r, "sid")
	pages, err := s.listPages(r, sid)
	s.metrics.observe("list", err, time.Since(start).Seconds())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]PageInfo{"pages": pages})
}

func (s *Server) listPages(r *http.Request, sid string) ([]PageInfo, error) {
	recs, err := s.store.List(r.Context(), sid)
	if err != nil {
		return nil, err
	}
	pages := make([]PageInfo, 0, len(recs))
	for _, rec := range recs {
		info, err := s.pageInfo(r, rec)
		if err != nil {
			continue
		}
		pages = append(pages, info)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: session %s has no pages", ErrNotFound, sid)
	}
	return pages, nil
}

// pageInfo reads the target's title and url. A target that no longer
// exists is unbound and reported as ErrNotFound.
func (s *Server) pageInfo(r *http.Request, rec Record) (PageInfo, error) {
	title, url, err := s.host.TargetInfo(r.Context(), rec.TargetID)
	if err != nil {
		loggerFrom(r.Context()).Warn("session: dropping page with dead target",
			"session", rec.SessionID, "page", rec.Name, "target", rec.TargetID, "error", err)
		if derr := s.store.Delete(r.Context(), rec.SessionID, rec.Name); derr == nil {
			s.syncOpenPages(r)
		}
		return PageInfo{}, fmt.Errorf("%w: page %s", ErrNotFound, rec.Name)
	}
	return PageInfo{
		Name:       rec.Name,
		TargetID:   rec.TargetID,
		WSEndpoint: s.host.WSEndpoint(),
		Title:      title,
		URL:        url,
	}, nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	info, err := s.createPage(r)
	s.metrics.observe("create", err, time.Since(start).Seconds())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loggerFrom(r.Context()).Info("session: page created", "page", info.Name, "target", info.TargetID)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) createPage(r *http.Request) (PageInfo, error) {
	sid := chi.URLParam(r, "sid")
	if err := ValidateName(sid); err != nil {
		return PageInfo{}, err
	}
	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return PageInfo{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := ValidateName(req.Name); err != nil {
		return PageInfo{}, err
	}
	ctx := r.Context()
	if _, err := s.store.Get(ctx, sid, req.Name); err == nil {
		return PageInfo{}, fmt.Errorf("%w: %s", ErrExists, req.Name)
	}

	url := req.URL
	if url == "" {
		url = "about:blank"
	}
	targetID, err := s.host.CreateTarget(ctx, url)
	if err != nil {
		return PageInfo{}, err
	}
	rec := Record{SessionID: sid, Name: req.Name, TargetID: targetID, CreatedAt: s.now()}
	if err := s.store.Insert(ctx, rec); err != nil {
		if cerr := s.host.CloseTarget(ctx, targetID); cerr != nil {
			loggerFrom(ctx).Warn("session: close orphan target", "target", targetID, "error", cerr)
		}
		return PageInfo{}, err
	}
	s.syncOpenPages(r)
	return s.pageInfo(r, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "name"))
	var info PageInfo
	if err == nil {
		info, err = s.pageInfo(r, rec)
	}
	s.metrics.observe("get", err, time.Since(start).Seconds())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := s.deletePage(r)
	s.metrics.observe("delete", err, time.Since(start).Seconds())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deletePage(r *http.Request) error {
	ctx := r.Context()
	sid, name := chi.URLParam(r, "sid"), chi.URLParam(r, "name")
	rec, err := s.store.Get(ctx, sid, name)
	if err != nil {
		return err
	}
	if err := s.host.CloseTarget(ctx, rec.TargetID); err != nil {
		loggerFrom(ctx).Warn("session: close target", "target", rec.TargetID, "error", err)
	}
	if err := s.store.Delete(ctx, sid, name); err != nil {
		return err
	}
	s.syncOpenPages(r)
	loggerFrom(ctx).Info("session: page closed", "page", name, "target", rec.TargetID)
	return nil
}

func (s *Server) syncOpenPages(r *http.Request) {
	if n, err := s.store.Count(r.Context()); err == nil {
		s.metrics.openPages.Set(float64(n))
	}
}

var errBadRequest = errors.New("session: bad request")

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrExists):
		code = http.StatusConflict
	case errors.As(err, &maxErr):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidName), errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		loggerFrom(r.Context()).Error("session: request failed", "error", err)
	}
	writeError(w, code, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
