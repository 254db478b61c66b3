package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/metrics"
)

// Metrics records request counts, durations and in-flight gauge per route.
func Metrics() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.IncInFlight()
			defer metrics.DecInFlight()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			path := r.URL.Path
			// Use the route template so ids don't explode label cardinality.
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}
			metrics.ObserveRequest(r.Method, path, rw.statusCode, time.Since(start))
		})
	}
}
