package api

import (
	"crypto/subtle"
	"net/http"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/service"
)

// handleTrackingWebhook handles POST /webhooks/tracking - Inbound pushes from
// the tracking provider. The response is identical whether or not the
// tracking number is known, so the endpoint cannot be used to probe which
// parcels exist.
func (s *Server) handleTrackingWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if s.config.WebhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.WebhookSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid webhook secret", nil)
		return
	}

	var payload service.WebhookPayload
	if err := parseJSONBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := s.services.Shipments.ApplyWebhook(r.Context(), &payload); err != nil {
		switch apperrors.GetHTTPStatusCode(err) {
		case http.StatusNotFound:
			// fall through to the generic acknowledgement
		case http.StatusBadRequest:
			respondServiceError(w, err)
			return
		default:
			s.logger.WithError(err).Error("webhook apply failed")
			respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred", nil)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
