// Package server provides the HTTP REST API of the CV builder.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/locale"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
)

// Store is the persistence the API depends on. *db.DB satisfies it.
type Store interface {
	CreateCV(ctx context.Context, userID uuid.UUID, record cv.Record) (*db.CVRow, error)
	GetCV(ctx context.Context, id uuid.UUID) (*db.CVRow, error)
	GetCVBySubdomain(ctx context.Context, subdomain string) (*db.CVRow, error)
	ListCVs(ctx context.Context, userID uuid.UUID, limit int) ([]db.CVSummary, error)
	UpdateCV(ctx context.Context, id uuid.UUID, record cv.Record) (*db.CVRow, error)
	DeleteCV(ctx context.Context, id uuid.UUID) (bool, error)
	PublishCV(ctx context.Context, id uuid.UUID, subdomain string) (*db.CVRow, error)
	Ping(ctx context.Context) error
}

// ScreenshotFunc renders preview HTML to a PNG.
type ScreenshotFunc func(ctx context.Context, html []byte) ([]byte, error)

// Config holds server configuration
type Config struct {
	Port          int
	DefaultLocale string
	PublicDomain  string
	Verbose       bool
	RateLimit     *ratelimit.Config
	// Screenshot serves preview.png when set.
	Screenshot ScreenshotFunc
}

// Server represents the HTTP server
type Server struct {
	httpServer    *http.Server
	store         Store
	catalogs      *locale.Registry
	generator     *rendering.Generator
	inFlight      *rendering.InFlight
	rateLimiter   *ratelimit.Limiter
	jwtService    *JWTService
	validator     *validator.Validate
	screenshot    ScreenshotFunc
	defaultLocale string
	publicDomain  string
	verbose       bool
	onShutdown    []func()
}

// New creates a new server instance. photos may be nil, in which case PDFs
// are rendered without a profile photo.
func New(cfg Config, store Store, jwtService *JWTService, photos rendering.PhotoSource) *Server {
	catalogs := locale.MustLoad()
	generator := rendering.NewGenerator(photos, catalogs)
	generator.Verbose = cfg.Verbose

	rateConfig := cfg.RateLimit
	if rateConfig == nil {
		rateConfig = ratelimit.LoadConfig()
	}

	s := &Server{
		store:         store,
		catalogs:      catalogs,
		generator:     generator,
		inFlight:      rendering.NewInFlight(),
		rateLimiter:   ratelimit.NewLimiter(rateConfig),
		jwtService:    jwtService,
		validator:     validator.New(),
		screenshot:    cfg.Screenshot,
		defaultLocale: cfg.DefaultLocale,
		publicDomain:  cfg.PublicDomain,
		verbose:       cfg.Verbose,
	}

	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // PDF generation waits on photo fetches
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed API wrapped in rate limiting, logging and CORS.
// Routes other than /health and the public pages require a bearer token.
func (s *Server) Handler() http.Handler {
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /p/{subdomain}", s.handlePublicCV)
	mux.HandleFunc("GET /templates", s.handleListTemplates)

	// CV documents
	mux.Handle("POST /cvs", protected(s.handleCreateCV))
	mux.Handle("GET /cvs", protected(s.handleListCVs))
	mux.Handle("GET /cvs/{id}", protected(s.handleGetCV))
	mux.Handle("PUT /cvs/{id}", protected(s.handleSaveCV))
	mux.Handle("DELETE /cvs/{id}", protected(s.handleDeleteCV))
	mux.Handle("POST /cvs/{id}/publish", protected(s.handlePublishCV))

	// Editing operations
	mux.Handle("POST /cvs/{id}/sections/{kind}", protected(s.handleAddSection))
	mux.Handle("PATCH /cvs/{id}/sections/{kind}/{entry_id}", protected(s.handleUpdateEntry))
	mux.Handle("DELETE /cvs/{id}/sections/{kind}/{entry_id}", protected(s.handleRemoveEntry))
	mux.Handle("DELETE /cvs/{id}/sections/{kind}", protected(s.handleRemoveSection))
	mux.Handle("PATCH /cvs/{id}/personal", protected(s.handleUpdatePersonal))
	mux.Handle("PUT /cvs/{id}/style", protected(s.handleSetStyle))
	mux.Handle("PUT /cvs/{id}/display-settings", protected(s.handleSetDisplaySettings))

	// Rendering
	mux.Handle("GET /cvs/{id}/preview", protected(s.handlePreview))
	mux.Handle("GET /cvs/{id}/preview.html", protected(s.handlePreviewHTML))
	mux.Handle("GET /cvs/{id}/preview.png", protected(s.handlePreviewPNG))
	mux.Handle("POST /cvs/{id}/pdf", protected(s.handlePDF))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// OnShutdown registers cleanup run after the HTTP server stops.
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.cleanup()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.cleanup()
	log.Println("Server stopped")
	return nil
}

func (s *Server) cleanup() {
	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	for _, fn := range s.onShutdown {
		fn()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if s.verbose {
			log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d completed in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			log.Printf("[health] database unreachable: %v", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure writes err with the status HTTPStatus maps it to. Internal
// errors are logged and reported without detail, except PDF generation
// failures which carry their cause to the client.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		log.Printf("[%s] %s failed: %v", r.Method, r.URL.Path, err)
		var renderErr *rendering.RenderError
		if errors.As(err, &renderErr) {
			s.errorResponse(w, status, renderErr.Error())
			return
		}
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
