package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/auth"
	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/observability"
	"github.com/rhuss/scribe/pkg/transport"
)

// postIDParam is the chi URL parameter holding the post ID.
const postIDParam = "blogId"

var errTrailingData = errors.New("unexpected data after JSON value")

// Adapter serves the blog API over HTTP.
// It routes requests to the Service and serializes responses.
type Adapter struct {
	svc    transport.Service
	router chi.Router
	config Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// MaxBodySize caps request bodies; larger bodies get 413.
	MaxBodySize int64

	// Auth guards the mutating post routes. When nil every protected
	// request is rejected with 401.
	Auth func(http.Handler) http.Handler

	// MetricsPath serves the Prometheus exposition when non-empty.
	MetricsPath string

	// Logger receives the access log and recovered panics.
	Logger *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
		MetricsPath: "/metrics",
		Logger:      slog.Default(),
	}
}

// NewAdapter creates an HTTP adapter for svc. Public routes are
// /register, /login and GET /blogs; POST /blogs, PUT /blogs/{blogId} and
// DELETE /blogs/{blogId} run behind cfg.Auth.
func NewAdapter(svc transport.Service, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auth == nil {
		cfg.Auth = denyAll
	}

	a := &Adapter{svc: svc, config: cfg}

	r := chi.NewRouter()
	r.Use(
		transport.RequestID(),
		transport.Logging(cfg.Logger),
		transport.Recovery(cfg.Logger),
		observability.MetricsMiddleware,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteAPIError(w, api.NewNotFoundError("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "method "+r.Method+" not allowed"),
			http.StatusMethodNotAllowed,
		)
	})

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	r.Post("/register", a.handleRegister)
	r.Post("/login", a.handleLogin)
	r.Get("/blogs", a.handleListPosts)

	protected := r.With(cfg.Auth, recordSubject)
	protected.Post("/blogs", a.handleCreatePost)
	protected.Put("/blogs/{"+postIDParam+"}", a.handleUpdatePost)
	protected.Delete("/blogs/{"+postIDParam+"}", a.handleDeletePost)

	a.router = r
	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.router
}

// recordSubject copies the authenticated subject into the access log entry.
func recordSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := auth.PrincipalFromContext(r.Context()); p != nil {
			transport.SetSubject(r.Context(), p.Subject)
		}
		next.ServeHTTP(w, r)
	})
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteAPIError(w, api.NewUnauthorizedError())
	})
}

// handleRegister handles POST /register.
func (a *Adapter) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Register(r.Context(), &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, api.MessageResponse{Message: api.MessageRegistered})
}

// handleLogin handles POST /login.
func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Login(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// handleListPosts handles GET /blogs.
func (a *Adapter) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.svc.ListPosts(r.Context())
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, posts)
}

// handleCreatePost handles POST /blogs.
func (a *Adapter) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePostRequest
	if !a.decode(w, r, &req) {
		return
	}
	id, err := a.svc.CreatePost(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, api.CreatePostResponse{
		Message: api.MessagePostCreated,
		BlogID:  id,
	})
}

// handleUpdatePost handles PUT /blogs/{blogId}.
func (a *Adapter) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req api.UpdatePostRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.UpdatePost(r.Context(), chi.URLParam(r, postIDParam), &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: api.MessagePostUpdated})
}

// handleDeletePost handles DELETE /blogs/{blogId}.
func (a *Adapter) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeletePost(r.Context(), chi.URLParam(r, postIDParam)); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: api.MessagePostDeleted})
}

// handleHealthz handles GET /healthz.
func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

// handleReadyz handles GET /readyz.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Ready(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		transport.WriteErrorResponse(w,
			api.NewServerError("store unavailable"),
			http.StatusServiceUnavailable,
		)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ready\n")
}

// decode reads a JSON request body into v. An empty body decodes as {} so
// that missing fields surface as validation errors. On failure it writes
// the error response and returns false.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if err == nil {
		_, extra := dec.Token()
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(extra, io.EOF):
		case errors.As(extra, &maxBytesErr):
			err = extra
		default:
			err = errTrailingData
		}
	}
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	debug.Log("transport", "rejected request body",
		"route", observability.RoutePattern(r),
		"error", err,
	)

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
			http.StatusRequestEntityTooLarge,
		)
		return false
	}
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
		http.StatusBadRequest,
	)
	return false
}
