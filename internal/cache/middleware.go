package cache

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-taskflow-api/app/observability/metrics"
)

// captureWriter tees a response into a buffer so a 2xx body can be stored
// after the handler ran.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// Middleware serves GET responses from the cache and stores misses. Only GET
// requests participate; only 2xx responses are stored. The key is the exact
// request path plus query string, so two differently-filtered list requests
// never collide.
func Middleware(rc ResponseCache, logger *slog.Logger) func(next http.Handler) http.Handler {
	metrics.InitAppMetrics()
	m := metrics.Get()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.Path
			if r.URL.RawQuery != "" {
				key += "?" + r.URL.RawQuery
			}

			if cached, found := rc.Get(key); found {
				m.CacheHitsTotal.Add(r.Context(), 1)
				logger.DebugContext(r.Context(), "Cache hit", slog.String("key", key))
				w.Header().Set("Content-Type", cached.ContentType)
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(cached.Status)
				_, _ = w.Write(cached.Body)
				return
			}

			m.CacheMissesTotal.Add(r.Context(), 1)
			logger.DebugContext(r.Context(), "Cache miss", slog.String("key", key))
			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			if cw.status >= 200 && cw.status < 300 {
				rc.Set(key, &CachedResponse{
					Status:      cw.status,
					ContentType: cw.Header().Get("Content-Type"),
					Body:        cw.buf.Bytes(),
				})
			}
		})
	}
}
