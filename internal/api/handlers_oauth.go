package api

import (
	"net/http"
	"strings"
)

// handleGmailConnect handles GET /integrations/gmail/connect - Returns the
// Google consent URL for the requesting user. The user id travels in the
// OAuth state parameter so the callback can attribute the grant.
func (s *Server) handleGmailConnect(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID header required", nil)
		return
	}
	if _, err := s.services.Users.GetTier(r.Context(), userID); err != nil {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unknown user", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"url": s.services.OAuth.ConsentURL(userID),
	})
}

// handleGmailCallback handles GET /integrations/gmail/callback - Exchanges
// the authorization code and stores the refresh token against the user named
// in the state parameter.
func (s *Server) handleGmailCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Consent was not granted", map[string]interface{}{
			"error": errCode,
		})
		return
	}

	code := query.Get("code")
	userID := query.Get("state")
	if code == "" || userID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "code and state are required", nil)
		return
	}

	token, err := s.services.OAuth.ExchangeCode(r.Context(), code)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// The mailbox address is cosmetic; a failed lookup should not lose the
	// grant we just obtained.
	email := ""
	if s.services.Mail != nil {
		if addr, err := s.services.Mail.GetProfile(r.Context(), token.AccessToken); err == nil {
			email = addr
		} else {
			s.logger.WithError(err).Warn("mailbox profile lookup failed")
		}
	}

	if err := s.services.Users.ConnectGmail(r.Context(), userID, email, token.RefreshToken); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": true,
		"email":     email,
	})
}
