package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Logging escreve logs estruturados por requisição, marcados com o backend
// de registros ativo (postgres ou planilha). Respostas 5xx sobem para warn.
func Logging(backend string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			event := log.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event = event.Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", ww.Status()).Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("backend", backend)

			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				event = event.Str("request_id", reqID)
			}

			if ip := r.Header.Get("X-Real-IP"); ip != "" {
				event = event.Str("ip", ip)
			} else {
				event = event.Str("ip", r.RemoteAddr)
			}

			if ua := r.Header.Get("User-Agent"); ua != "" {
				event = event.Str("user_agent", ua)
			}

			event.Msg("http_request")
		})
	}
}
