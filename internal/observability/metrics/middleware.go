package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RouteNamer maps a request to a low-cardinality handler label.
type RouteNamer func(r *http.Request) string

// Middleware records request count, errors and latency for every request.
func Middleware(name RouteNamer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			label := r.URL.Path
			if name != nil {
				if named := name(r); named != "" {
					label = named
				}
			}
			ObserveHTTPRequest(label, r.Method, StatusOf(ww), time.Since(start))
		})
	}
}

// StatusOf returns the status written through ww; a handler that never
// wrote anything is reported as 200, which is what net/http sends.
func StatusOf(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
