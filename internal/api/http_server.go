package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"studiobook/internal/availability"
	"studiobook/internal/config"
	"studiobook/internal/domain"
	"studiobook/internal/metrics"
	"studiobook/internal/service"

	"github.com/rs/zerolog"
)

// Deps bundles the collaborators the HTTP surface adapts.
type Deps struct {
	Checkout      *service.CheckoutService
	Reconciler    *service.ReconcilerService
	Cancellation  *service.CancellationService
	Slots         *service.SlotTemplateService
	Availability  *availability.Engine
	Store         domain.Store
	WebhookParser domain.WebhookParser
}

// HTTPServer exposes the public booking API and the admin API.
type HTTPServer struct {
	server         *http.Server
	auth           *HTTPAuth
	deps           Deps
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewHTTPServer(cfg config.HTTPConfig, authCfg config.AuthConfig, bookingCfg config.BookingConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		auth:           NewHTTPAuth(authCfg),
		deps:           deps,
		maxBookingDays: bookingCfg.MaxBookingDays,
		logger:         logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler builds the routed, authenticated handler chain.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/checkout", s.handleCheckout)
	mux.HandleFunc("/api/v1/slots", s.handleSlots)
	mux.HandleFunc("/api/v1/bookings/verify", s.handleVerify)
	mux.HandleFunc("/api/v1/webhooks/payment", s.handleWebhook)

	mux.HandleFunc("/api/v1/admin/bookings", s.handleAdminBookings)
	mux.HandleFunc("/api/v1/admin/bookings/cancel", s.handleAdminCancel)
	mux.HandleFunc("/api/v1/admin/bookings/export", s.handleAdminExport)
	mux.HandleFunc("/api/v1/admin/payments", s.handleAdminPayments)
	mux.HandleFunc("/api/v1/admin/customers", s.handleAdminCustomers)
	mux.HandleFunc("/api/v1/admin/slot-templates", s.handleAdminSlotTemplates)
	mux.HandleFunc("/api/v1/admin/slot-templates/", s.handleAdminSlotTemplateByID)

	mux.HandleFunc("/healthz", s.handleHealth)

	return s.loggingMiddleware(s.auth.Wrap(mux))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
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

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentSession),
		errors.Is(err, domain.ErrPaymentProcessing):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
