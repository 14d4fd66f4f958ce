package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studiobook/internal/export"
	"studiobook/internal/metrics"
	"studiobook/internal/models"
)

// maxWebhookBody bounds the processor payload read.
const maxWebhookBody = 1 << 20

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createCheckout(w, r)
	case http.MethodGet:
		s.checkoutStatus(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createCheckout(w http.ResponseWriter, r *http.Request) {
	var draft models.BookingDraft
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.deps.Checkout.CreateCheckout(r.Context(), draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *HTTPServer) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	status, err := s.deps.Checkout.CheckoutStatus(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status.PaymentStatus,
		"customerEmail": status.CustomerEmail,
		"metadata":      status.Metadata,
	})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	// The engine derives slots for any date; the booking window is
	// enforced here at the edge.
	today, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))
	if date.Before(today) {
		writeError(w, http.StatusBadRequest, "date is in the past")
		return
	}
	if s.maxBookingDays > 0 && date.After(today.AddDate(0, 0, s.maxBookingDays)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("date is beyond the %d-day booking window", s.maxBookingDays))
		return
	}

	slots, err := s.deps.Availability.AvailableSlots(r.Context(), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": dateStr, "slots": slots})
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	result, err := s.deps.Reconciler.Verify(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWebhook is the processor ingress. A bad signature gets 400 and is
// never processed; a persistence failure gets 500 so the processor retries
// the delivery; everything else is acknowledged with 200.
func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	event, err := s.deps.WebhookParser.ParseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("webhook signature verification failed")
		metrics.IncWebhookEvent("unknown", "bad_signature")
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}
	if event == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := s.deps.Reconciler.HandleEvent(r.Context(), event); err != nil {
		s.logger.Error().Err(err).
			Str("kind", event.Kind).
			Str("session_id", event.SessionID).
			Msg("webhook reconciliation failed")
		metrics.IncWebhookEvent(event.Kind, "error")
		writeDomainError(w, err)
		return
	}

	metrics.IncWebhookEvent(event.Kind, "ok")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *HTTPServer) handleAdminCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID  string `json:"bookingId"`
		RefundType string `json:"refundType"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.RefundType == "" {
		body.RefundType = models.RefundPolicyNone
	}

	result, err := s.deps.Cancellation.CancelBooking(r.Context(), body.BookingID, body.RefundType, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	bookings, err := s.deps.Store.ListBookings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.deps.Store.ListBookings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := export.WriteBookingsXLSX(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("bookings export failed")
	}
}

func (s *HTTPServer) handleAdminPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payments, err := s.deps.Store.ListPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (s *HTTPServer) handleAdminCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	customers, err := s.deps.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (s *HTTPServer) handleAdminSlotTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		templates, err := s.deps.Slots.List(r.Context(), activeOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"templates": templates})

	case http.MethodPost:
		var template models.SlotTemplate
		if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := s.deps.Slots.Create(r.Context(), &template)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAdminSlotTemplateByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/slot-templates/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		template, err := s.deps.Slots.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, template)

	case http.MethodPut:
		var template models.SlotTemplate
		if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		template.ID = id
		if err := s.deps.Slots.Update(r.Context(), &template); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, template)

	case http.MethodDelete:
		if err := s.deps.Slots.Deactivate(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deactivated": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
