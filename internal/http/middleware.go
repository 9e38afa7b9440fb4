package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"tubelink/internal/flood"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied request IDs.
const maxRequestIDLen = 64

type requestIDKey struct{}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging logs each request and records it in metrics.
func withLogging(next http.Handler, metrics *Metrics, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		metrics.RecordRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(rec.status), duration)
		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
			zap.String("ip", clientKey(r)),
			zap.String("request_id", requestIDFrom(r.Context())))
	})
}

// withRequestID propagates the caller's X-Request-ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withCORS allows cross-origin calls from any origin.
func withCORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", RequestIDHeader},
		ExposedHeaders:       []string{OutcomeHeader, RequestIDHeader},
		OptionsSuccessStatus: http.StatusNoContent,
	}).Handler(next)
}

// withFloodgate rejects clients that exceed the gate's per-minute budget.
func withFloodgate(next http.HandlerFunc, gate *flood.Floodgate, h *handlers) http.HandlerFunc {
	if gate == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !gate.Allow(clientKey(r)) {
			h.metrics.RecordRateLimited()
			h.logger.Info("Client rate limited", zap.String("ip", clientKey(r)))
			h.fail(w, http.StatusTooManyRequests, "error.rate_limited")
			return
		}
		next(w, r)
	}
}

// clientKey identifies the caller by remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// routeLabel keeps metric label cardinality bounded.
func routeLabel(path string) string {
	switch path {
	case "/", "/convert", "/healthz", "/readyz", "/metrics":
		return path
	default:
		return "other"
	}
}
