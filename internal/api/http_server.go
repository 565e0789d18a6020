package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gorental/internal/config"
	"gorental/internal/database"
	"gorental/internal/domain"
	"gorental/internal/metrics"
	"gorental/internal/service"
)

// HTTPServer exposes the reservation engine API.
type HTTPServer struct {
	cfg      config.ServerConfig
	pages    config.BookingConfig
	bookings *service.BookingService
	cars     *service.CarService
	sales    *service.SalesService
	verifier domain.WebhookVerifier
	auth     *HTTPAuth
	server   *http.Server
	log      zerolog.Logger
}

func NewHTTPServer(
	cfg config.ServerConfig,
	pages config.BookingConfig,
	bookings *service.BookingService,
	cars *service.CarService,
	sales *service.SalesService,
	verifier domain.WebhookVerifier,
	logger *zerolog.Logger,
) *HTTPServer {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:      cfg,
		pages:    pages,
		bookings: bookings,
		cars:     cars,
		sales:    sales,
		verifier: verifier,
		auth:     NewHTTPAuth(cfg),
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/me", srv.handleMyBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/cars", srv.handleCars)
	mux.HandleFunc("/api/v1/cars/", srv.handleCarByID)
	mux.HandleFunc("/api/v1/admin/bookings", srv.handleAdminBookings)
	mux.HandleFunc("/api/v1/admin/sales", srv.handleSales)
	mux.HandleFunc("/api/v1/admin/sales/export", srv.handleSalesExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	// The webhook authenticates by signature, not API key.
	root := http.NewServeMux()
	root.HandleFunc("/webhooks/payment", srv.handlePaymentWebhook)
	root.Handle("/api/v1/", srv.auth.Wrap(mux))
	root.Handle("/healthz", mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.withRequestLog(root),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the assembled handler, exposed for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses paths with ids so the metric cardinality stays
// bounded.
func endpointLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/bookings/me"):
		return "/api/v1/bookings/me"
	case strings.HasPrefix(path, "/api/v1/bookings"):
		return "/api/v1/bookings"
	case strings.HasPrefix(path, "/api/v1/cars"):
		return "/api/v1/cars"
	case strings.HasPrefix(path, "/api/v1/admin/sales"):
		return "/api/v1/admin/sales"
	case strings.HasPrefix(path, "/api/v1/admin/bookings"):
		return "/api/v1/admin/bookings"
	case strings.HasPrefix(path, "/webhooks/"):
		return "/webhooks/payment"
	default:
		return "other"
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrNotAvailable):
		writeError(w, http.StatusConflict, "car is not available for the requested dates")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "booking was modified concurrently, retry")
	case errors.Is(err, database.ErrInvalidDateRange),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMethodAlreadySelected):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPaymentsUnavailable):
		writeError(w, http.StatusServiceUnavailable, "payment provider is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
