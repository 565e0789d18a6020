package api

import (
	"io"
	"net/http"

	"gorental/internal/metrics"
)

// Stripe caps event payloads well below this; anything larger is bogus.
const maxWebhookBodyBytes = 65536

// handlePaymentWebhook receives gateway deliveries. Any verification or
// processing failure answers non-2xx so the gateway retries; duplicates
// and uninteresting event types are acknowledged.
func (s *HTTPServer) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	notification, err := s.verifier.ParseNotification(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.IncWebhookEvent("rejected")
		s.log.Warn().Err(err).Msg("webhook verification failed")
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}
	if notification == nil {
		// Verified but not an event type this engine consumes.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := s.bookings.HandleNotification(r.Context(), notification); err != nil {
		s.log.Error().Err(err).Str("event_id", notification.EventID).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
