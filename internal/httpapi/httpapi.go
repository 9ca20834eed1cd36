// Package httpapi exposes the geocoding query surface over HTTP: GET
// /autocomplete, /reverse, /features/{id}, /status (spec §4.I). Routing
// is grounded on chi (the pack's other geo-query HTTP service uses a
// lightweight router rather than a full framework); the error-response
// shape and per-request logging middleware follow the teacher's Fiber
// server, re-expressed as chi middleware.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/metrics"
	apperrors "github.com/mimirsbrunn/internal/pkg/errors"
	pkgvalidator "github.com/mimirsbrunn/internal/pkg/validator"
	"github.com/mimirsbrunn/internal/query"
	"github.com/mimirsbrunn/internal/shaper"
)

// autocompleteParams and reverseParams carry the struct-tag validation the
// handlers run ahead of the hand-written coordinate/limit range checks,
// covering shape constraints validator.Validate already expresses well.
type autocompleteParams struct {
	Limit int `validate:"omitempty,min=1,max=1000"`
}

type reverseParams struct {
	Lat   float64 `validate:"min=-90,max=90"`
	Lon   float64 `validate:"min=-180,max=180"`
	Limit int     `validate:"omitempty,min=1,max=1000"`
}

// StatusReporter supplies /status's per-dataset summary; indexmgr.Manager
// implements it (indexmgr/status.go), and the interface keeps httpapi from
// importing indexmgr directly.
type StatusReporter interface {
	Status(ctx context.Context) (interface{}, error)
}

// Server wires the Query Planner and Result Shaper into an HTTP handler.
type Server struct {
	router         chi.Router
	planner        *query.Planner
	log            *zap.Logger
	requestTimeout time.Duration
	status         StatusReporter
	metrics        *metrics.Query
}

// WithMetrics attaches the query metrics collector set; routes observed
// before this is called are not recorded.
func (s *Server) WithMetrics(m *metrics.Query) *Server {
	s.metrics = m
	return s
}

func New(planner *query.Planner, log *zap.Logger, requestTimeout time.Duration, status StatusReporter) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	s := &Server{planner: planner, log: log, requestTimeout: requestTimeout, status: status}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.deadlineMiddleware)

	r.Get("/autocomplete", s.handleAutocomplete)
	r.Get("/reverse", s.handleReverse)
	r.Get("/features/{id}", s.handleFeature)
	r.Get("/status", s.handleStatus)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", duration),
		)
		if s.metrics != nil {
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			s.metrics.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
			s.metrics.RequestTotal.WithLabelValues(route, statusClass(ww.Status())).Inc()
		}
	})
}

func (s *Server) deadlineMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	if trimmed(text) == "" {
		writeError(w, apperrors.ErrEmptyQuery)
		return
	}

	req := query.Request{Text: text, ZoneType: q.Get("zone_type"), PoiType: q.Get("poi_type")}
	params := autocompleteParams{}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, apperrors.ErrInvalidLimit)
			return
		}
		params.Limit = n
		req.Limit = n
	}
	if err := pkgvalidator.Validate(params); err != nil {
		writeError(w, apperrors.ErrInvalidLimit.WithCause(err))
		return
	}

	if latStr, lonStr := q.Get("lat"), q.Get("lon"); latStr != "" || lonStr != "" {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lon, err2 := strconv.ParseFloat(lonStr, 64)
		if err1 != nil || err2 != nil {
			writeError(w, apperrors.ErrInvalidCoordinates)
			return
		}
		if err := pkgvalidator.Validate(reverseParams{Lat: lat, Lon: lon}); err != nil {
			writeError(w, apperrors.ErrInvalidCoordinates.WithCause(err))
			return
		}
		req.Focus = &query.Focus{Lat: lat, Lon: lon}
	}

	result, err := s.planner.Autocomplete(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	fc, err := shaper.ShapeFeatureCollection(result.Hits.Hits, text)
	if err != nil {
		writeError(w, apperrors.ErrInternalServer.WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, apperrors.ErrInvalidCoordinates)
		return
	}

	req := query.ReverseRequest{Lat: lat, Lon: lon, PerType: q.Get("per_type") == "true"}
	params := reverseParams{Lat: lat, Lon: lon}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, apperrors.ErrInvalidLimit)
			return
		}
		params.Limit = n
		req.Limit = n
	}
	if err := pkgvalidator.Validate(params); err != nil {
		writeError(w, apperrors.ErrInvalidCoordinates.WithCause(err))
		return
	}

	result, err := s.planner.ReverseGeocode(r.Context(), req, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	fc, err := shaper.ShapeFeatureCollection(result.Hits.Hits, "")
	if err != nil {
		writeError(w, apperrors.ErrInternalServer.WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hit, err := s.planner.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	feature, err := shaper.ShapeHit(*hit)
	if err != nil {
		writeError(w, apperrors.ErrInternalServer.WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, feature)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	report, err := s.status.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func trimmed(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse matches the teacher's {"error": {...}} envelope shape.
type errorResponse struct {
	Error *apperrors.AppError `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.ErrInternalServer.WithCause(err)
	}
	writeJSON(w, appErr.StatusCode, errorResponse{Error: appErr})
}

