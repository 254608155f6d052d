// Package api exposes the HTTP browsing surface backed by the item store.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/feed"
	"github.com/paperdesk/arxivd/internal/metrics"
	"github.com/paperdesk/arxivd/internal/store"
)

const defaultPageSize = 10

// Server wires HTTP handlers to the item store. It serves the query
// surface the browsing UI consumes and the review-state mutations;
// rendering stays with the UI. No authentication.
type Server struct {
	router chi.Router
	items  store.ItemStore
	logger *zap.Logger
}

// NewServer constructs a Server with its routes.
func NewServer(items store.ItemStore, logger *zap.Logger) *Server {
	s := &Server{items: items, logger: logger}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dates", s.listDates)
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.listItems)
			r.Post("/{id}/read", s.markRead)
			r.Post("/{id}/star", s.markStar)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type datesResponse struct {
	Dates []string `json:"dates"`
	Total int64    `json:"total"`
}

func (s *Server) listDates(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	total, err := s.items.CountByFilter(r.Context(), f)
	if err != nil {
		s.logger.Error("count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	dates, err := s.items.DistinctBucketDates(r.Context(), f)
	if err != nil {
		s.logger.Error("distinct dates failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, datesResponse{Dates: dates, Total: total})
}

type pageResponse struct {
	Items      []feed.Record `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bucket := r.URL.Query().Get("bucket_date")
	if bucket == "" {
		writeError(w, http.StatusBadRequest, "bucket_date is required")
		return
	}
	page, err := intQuery(r, "page", 0)
	if err != nil || page < 0 {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	pageSize, err := intQuery(r, "page_size", defaultPageSize)
	if err != nil || pageSize <= 0 {
		writeError(w, http.StatusBadRequest, "invalid page_size")
		return
	}

	counted := f
	counted.BucketDate = bucket
	total, err := s.items.CountByFilter(r.Context(), counted)
	if err != nil {
		s.logger.Error("count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	records, err := s.items.FindPage(r.Context(), bucket, f, store.Skip(page, pageSize), pageSize)
	if err != nil {
		s.logger.Error("find page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if records == nil {
		records = []feed.Record{}
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items:      records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: store.PageCount(total, pageSize),
	})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	s.setState(w, r, feed.ReviewRead)
}

func (s *Server) markStar(w http.ResponseWriter, r *http.Request) {
	s.setState(w, r, feed.ReviewStar)
}

func (s *Server) setState(w http.ResponseWriter, r *http.Request, state feed.ReviewState) {
	id := chi.URLParam(r, "id")
	ok, err := s.items.SetReviewState(r.Context(), id, state)
	if err != nil {
		s.logger.Error("set review state failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "review_state": string(state)})
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	state, err := store.ParseStateFilter(r.URL.Query().Get("state"))
	if err != nil {
		return store.Filter{}, err
	}
	return store.Filter{State: state, Tag: r.URL.Query().Get("tag")}, nil
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
