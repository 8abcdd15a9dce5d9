package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmmcquay/othello-dataset/internal/metrics"
)

// otherRoute labels requests for paths the server does not mount.
const otherRoute = "other"

// PrometheusMiddleware records every request in collector. Paths outside
// routes are counted under a single "other" label.
func PrometheusMiddleware(collector *metrics.Collector, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if !known[path] {
				path = otherRoute
			}
			collector.RecordHTTPRequest(r.Method, path, strconv.Itoa(sw.status()), time.Since(start).Seconds())
		})
	}
}

// statusWriter remembers the first status code sent.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code != 0 {
		return
	}
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}
