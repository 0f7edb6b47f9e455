package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "fisheye_http_response_time_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"path"})
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fisheye_http_requests_total",
		Help: "Number of HTTP requests.",
	}, []string{"path", "code"})
	undistortedPixels = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fisheye_undistorted_pixels_total",
		Help: "Number of destination pixels produced.",
	})
	undistortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fisheye_undistort_failures_total",
		Help: "Number of failed undistortion requests by error kind.",
	}, []string{"kind"})
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// prometheusMiddleware records latency and status per route template so the
// label set stays bounded.
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		httpDuration.WithLabelValues(path).Observe(duration.Seconds())
		httpRequests.WithLabelValues(path, http.StatusText(rec.code)).Inc()
	})
}
