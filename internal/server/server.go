// Package server exposes the undistortion pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fisheye/pkg/codec"
	"fisheye/pkg/fisheye"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 64 << 20

// Server routes undistortion requests.
type Server struct {
	logger       *zap.SugaredLogger
	defaults     fisheye.Config
	maxBodyBytes int64
	router       *mux.Router
}

// New creates a Server. defaults supplies every parameter a request does not
// override; nil uses fisheye.NewConfig.
func New(logger *zap.SugaredLogger, defaults *fisheye.Config) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if defaults == nil {
		defaults = fisheye.NewConfig()
	}
	s := &Server{
		logger:       logger,
		defaults:     *defaults,
		maxBodyBytes: DefaultMaxBodyBytes,
		router:       mux.NewRouter(),
	}
	s.routes()
	return s
}

// SetMaxBodyBytes changes the request body limit.
func (s *Server) SetMaxBodyBytes(n int64) {
	s.maxBodyBytes = n
}

func (s *Server) routes() {
	s.router.Use(prometheusMiddleware)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/undistort", s.handleUndistortBase64).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/undistort/raw", s.handleUndistortRaw).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the root handler with panic recovery.
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down")
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleUndistortBase64(w http.ResponseWriter, r *http.Request) {
	p, format, err := s.requestParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.fail(w, r, errors.Wrap(err, "reading body"))
		return
	}
	data, err := codec.DecodeBase64(string(body))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, result, err := codec.UndistortBytes(r.Context(), data, p, format, fisheye.WithLogger(s.logger))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeMetricsHeaders(w, result)
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, codec.EncodeBase64(out))
}

func (s *Server) handleUndistortRaw(w http.ResponseWriter, r *http.Request) {
	p, format, err := s.requestParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.fail(w, r, errors.Wrap(err, "reading body"))
		return
	}
	out, result, err := codec.UndistortBytes(r.Context(), body, p, format, fisheye.WithLogger(s.logger))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeMetricsHeaders(w, result)
	w.Header().Set("Content-Type", contentType(format))
	_, _ = w.Write(out)
}

func (s *Server) writeMetricsHeaders(w http.ResponseWriter, result *fisheye.UndistortResult) {
	undistortedPixels.Add(float64(result.Metrics.Pixels))
	w.Header().Set("X-Fisheye-Coverage", strconv.FormatFloat(result.Metrics.CoverageFraction(), 'f', 4, 64))
	w.Header().Set("X-Fisheye-Out-Of-Bounds", strconv.Itoa(result.Metrics.OutOfBounds))
}

// requestParams overlays query parameters on the server defaults.
func (s *Server) requestParams(r *http.Request) (*fisheye.Params, codec.Format, error) {
	cfg := s.defaults
	q := r.URL.Query()
	if v := q.Get("family"); v != "" {
		cfg.Family = v
	}
	if v := firstOf(q.Get("output_fov"), q.Get("fov")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, "", errors.Wrapf(fisheye.ErrInvalidParams, "output_fov %q", v)
		}
		cfg.OutputFovDegrees = f
	}
	if v := q.Get("lens_fov"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, "", errors.Wrapf(fisheye.ErrInvalidParams, "lens_fov %q", v)
		}
		cfg.LensFovDegrees = f
	}
	if v := q.Get("center"); v != "" {
		cfg.Center = v
	}
	if v := firstOf(q.Get("sampling"), q.Get("policy")); v != "" {
		cfg.Sampling = v
	}
	if v := q.Get("nodata"); v != "" {
		nodata, err := fisheye.ParseNoData(v)
		if err != nil {
			return nil, "", err
		}
		cfg.NoData = nodata
	}
	p, err := cfg.Params()
	if err != nil {
		return nil, "", err
	}
	format, err := codec.ParseFormat(q.Get("format"))
	if err != nil {
		return nil, "", err
	}
	return p, format, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind, code := classify(err)
	undistortFailures.WithLabelValues(kind).Inc()
	s.logger.Warnw("undistort request failed", "path", r.URL.Path, "kind", kind, "error", err)
	http.Error(w, fmt.Sprintf("%s: %v", kind, err), code)
}

// classify maps an error onto its kind and the HTTP status reported for it.
func classify(err error) (string, int) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, codec.ErrDecode):
		return "decode", http.StatusBadRequest
	case errors.Is(err, codec.ErrFormat):
		return "format", http.StatusUnsupportedMediaType
	case errors.Is(err, fisheye.ErrInvalidDimensions):
		return "invalid_dimensions", http.StatusUnprocessableEntity
	case errors.Is(err, fisheye.ErrUnsupportedProjectionFamily):
		return "unsupported_projection_family", http.StatusBadRequest
	case errors.Is(err, fisheye.ErrInvalidParams):
		return "invalid_params", http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return "too_large", http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled", http.StatusServiceUnavailable
	default:
		return "internal", http.StatusInternalServerError
	}
}

func contentType(format codec.Format) string {
	switch format {
	case codec.JPEG:
		return "image/jpeg"
	case codec.BMP:
		return "image/bmp"
	case codec.TIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
