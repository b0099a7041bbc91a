package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// Logging records one request.complete line per request. Server errors are
// logged at warn; the handler that failed already logged the cause.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			level := zerolog.InfoLevel
			if status >= http.StatusInternalServerError {
				level = zerolog.WarnLevel
			}
			event := logg.Zerolog(ctx).WithLevel(level).
				Int("status", status).
				Int64("bytes", rec.bytes).
				Int64("duration_ms", time.Since(start).Milliseconds())
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				event = event.Str("route", rc.RoutePattern())
			}
			event.Msg("request.complete")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

func (s *statusRecorder) statusCode() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// Unwrap lets http.ResponseController reach the hijacker for websocket upgrades.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
