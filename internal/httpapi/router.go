package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	ilog "github.com/yourusername/sunviewfinder/internal/log"
	"github.com/yourusername/sunviewfinder/internal/pipeline"
	"github.com/yourusername/sunviewfinder/pkg/config"
)

// Server wires the pipeline runner into an HTTP router.
type Server struct {
	handlers *Handlers
	logger   *zap.SugaredLogger
}

// NewServer builds a Server backed by pipe. history is optional (pass
// nil to disable run-history persistence and the history route).
func NewServer(pipe *pipeline.Pipeline, history config.ConfigProvider, logger *zap.SugaredLogger) *Server {
	return &Server{
		handlers: &Handlers{mgr: newManager(pipe, history), logger: logger},
		logger:   logger,
	}
}

// Router returns the configured mux.Router, ready to be served.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.httpLoggingMiddleware)

	api := router.PathPrefix("/api/v1/pipeline").Subrouter()
	api.HandleFunc("/runs", s.handlers.CreateRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}/events", s.handlers.StreamRunEvents).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handlers.CancelRun).Methods(http.MethodDelete)
	api.HandleFunc("/history", s.handlers.ListRunHistory).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/logs", s.handlers.LogsSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/logs/stream", s.handlers.StreamLogs).Methods(http.MethodGet)

	return router
}

// httpLoggingMiddleware logs every request to the shared HTTP log
// buffer.
func (s *Server) httpLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		ilog.LogHTTPRequest(
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			time.Since(start),
			wrapped.bytesWritten,
			r.RemoteAddr,
			r.UserAgent(),
			"pipeline-runs",
			nil,
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code and
// bytes written for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Flush passes through to the underlying writer so the SSE handlers
// can stream through this wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
