package server

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/telemetry"
)

// requestContext copies chi's request id into the telemetry context so tool
// events, audit rows and log lines share one correlation id.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(telemetry.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := logging.Info
		if status >= http.StatusInternalServerError {
			level = logging.Error
		}
		level().
			Add(logging.Component("http")).
			Add(logging.RequestID(middleware.GetReqID(r.Context()))).
			Add(logging.Str("method", r.Method)).
			Add(logging.Str("path", r.URL.Path)).
			Add(logging.Int("status", status)).
			Add(logging.Size("bytes", ww.BytesWritten())).
			Add(logging.Duration(time.Since(start))).
			Msg("request")
	})
}

// rateLimit applies the token bucket keyed by client address.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !s.limiter.Allow(r.Context(), key) {
			logging.Warn().
				Add(logging.Component("http")).
				Add(logging.RequestID(middleware.GetReqID(r.Context()))).
				Add(logging.Str("key", key)).
				Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, agentMessage{Msg: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
