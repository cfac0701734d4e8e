package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
	"github.com/JakeFAU/newsrank-crawler/internal/metrics"
)

// Response messages returned in {"message": ...} bodies.
const (
	MsgWebsiteRequired = "Website is required"
	MsgInvalidWebsite  = "Invalid website"
	MsgExecuteFailed   = "An error occurred while processing your request"
	MsgExecuteOK       = "Execute the crawler successfully"
)

const maxBodyBytes = 1 << 16

// CrawlService is the subset of crawler.Service the HTTP surface needs.
type CrawlService interface {
	StartCrawl(ctx context.Context, siteID string) (crawler.JobSummary, error)
	LoadTop(ctx context.Context, siteID string) (crawler.ArticleData, error)
	Running() []string
}

// Options tunes the server. Zero values are usable.
type Options struct {
	// BaseContext parents every crawl so a client disconnect does not abort
	// a job while shutdown still does. Defaults to context.Background().
	BaseContext    context.Context
	RequestTimeout time.Duration
	IDs            crawler.IDGenerator
	Logger         *zap.Logger
}

// Server wires HTTP handlers to the crawl service.
type Server struct {
	router  chi.Router
	svc     CrawlService
	baseCtx context.Context
	ids     crawler.IDGenerator
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc CrawlService, opts Options) *Server {
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		svc:     svc,
		baseCtx: opts.BaseContext,
		ids:     opts.IDs,
		logger:  opts.Logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/webcrawler/v1", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(opts.RequestTimeout))
		}
		r.Post("/execute", s.execute)
		r.Post("/load", s.load)
		r.Get("/running", s.running)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if err := s.baseCtx.Err(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type websiteRequest struct {
	Website string `json:"website"`
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWebsite(w, r)
	if !ok {
		return
	}

	summary, err := s.svc.StartCrawl(s.baseCtx, req.Website)
	switch {
	case err == nil:
		s.logger.Info("crawl finished",
			zap.String("site", req.Website),
			zap.String("job_id", summary.JobID),
			zap.String("status", string(summary.Status)),
			zap.Int("articles_appended", summary.ArticlesAppended),
		)
		s.writeMessage(w, http.StatusOK, MsgExecuteOK)
	case errors.Is(err, crawler.ErrInvalidSite):
		s.writeMessage(w, http.StatusBadRequest, MsgInvalidWebsite)
	case errors.Is(err, crawler.ErrAlreadyRunning):
		s.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Website %s is already being processed", req.Website))
	default:
		s.logger.Error("crawl request failed", zap.String("site", req.Website), zap.Error(err))
		s.writeMessage(w, http.StatusInternalServerError, MsgExecuteFailed)
	}
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWebsite(w, r)
	if !ok {
		return
	}
	data, err := s.svc.LoadTop(r.Context(), req.Website)
	if err != nil {
		if errors.Is(err, crawler.ErrInvalidSite) {
			s.writeMessage(w, http.StatusBadRequest, MsgInvalidWebsite)
			return
		}
		s.logger.Error("load top failed", zap.String("site", req.Website), zap.Error(err))
		s.writeMessage(w, http.StatusInternalServerError, MsgExecuteFailed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": data})
}

func (s *Server) running(w http.ResponseWriter, _ *http.Request) {
	sites := s.svc.Running()
	if sites == nil {
		sites = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"running": sites})
}

func (s *Server) decodeWebsite(w http.ResponseWriter, r *http.Request) (websiteRequest, bool) {
	var req websiteRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	req.Website = strings.TrimSpace(req.Website)
	if req.Website == "" {
		s.writeMessage(w, http.StatusBadRequest, MsgWebsiteRequired)
		return req, false
	}
	return req, true
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = s.newRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) newRequestID() string {
	if s.ids != nil {
		if id, err := s.ids.NewID(); err == nil {
			return id
		}
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", RequestID(r.Context())),
					zap.Any("error", rec),
				)
				s.writeMessage(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// RequestID returns the request ID stored by the server middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"message": msg})
}
