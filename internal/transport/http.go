package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/tally/internal/domain/activity"
)

// ActivityService is the activity log as seen by the HTTP API.
type ActivityService interface {
	Append(ctx context.Context, userID string, activityType activity.ActivityType, data activity.ActivityData) (activity.ActivityEntry, bool)
	List(ctx context.Context, userID string, opts activity.ListOptions) []activity.ActivityEntry
	Summary(ctx context.Context, userID string) activity.Summary
	ExportForUser(ctx context.Context, userID string) string
	ClearForUser(ctx context.Context, userID string) int
	Stats(ctx context.Context) activity.LogStats
}

// ServerOptions holds optional pieces of the router.
type ServerOptions struct {
	// Auth guards /v1 when set. The MCP server authenticates its own calls.
	Auth func(http.Handler) http.Handler
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// MCP is served on /mcp when set.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	activity ActivityService
	logger   *slog.Logger
}

// AppendRequest is the body of POST /v1/users/{userID}/activities.
type AppendRequest struct {
	Type string                `json:"type"`
	Data activity.ActivityData `json:"data"`
}

// ClearResponse is the body returned by DELETE /v1/users/{userID}/activities.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// NewServer creates an HTTP server router with middleware.
func NewServer(svc ActivityService, opts ServerOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{activity: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Route("/v1", func(r chi.Router) {
			r.Get("/stats", srv.handleStats)
			r.Route("/users/{userID}", func(r chi.Router) {
				r.Post("/activities", srv.handleAppend)
				r.Get("/activities", srv.handleList)
				r.Delete("/activities", srv.handleClear)
				r.Get("/summary", srv.handleSummary)
				r.Get("/export", srv.handleExport)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.activity.Stats(r.Context()))
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		return
	}
	activityType, err := activity.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "UNKNOWN_TYPE", err.Error())
		return
	}

	entry, ok := s.activity.Append(r.Context(), userID, activityType, req.Data)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "NOT_RECORDED", "activity was not recorded")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	query := r.URL.Query()

	var opts activity.ListOptions
	for _, raw := range query["type"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			activityType, err := activity.ParseType(name)
			if err != nil {
				writeError(w, http.StatusBadRequest, "UNKNOWN_TYPE", err.Error())
				return
			}
			opts.Types = append(opts.Types, activityType)
		}
	}
	var err error
	if opts.Limit, err = intParam(query.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}
	if opts.Offset, err = intParam(query.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_OFFSET", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.activity.List(r.Context(), userID, opts))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.activity.Summary(r.Context(), chi.URLParam(r, "userID")))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	body := s.activity.ExportForUser(r.Context(), userID)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "activity-"+userID+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	removed := s.activity.ClearForUser(r.Context(), userID)
	s.logger.Info("user activity cleared via api", "user_id", userID, "removed", removed)
	writeJSON(w, http.StatusOK, ClearResponse{Removed: removed})
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %q", raw)
	}
	return n, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
