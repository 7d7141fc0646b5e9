package api

import (
	"net/http"

	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/service"
)

// handleCreateUser handles POST /api/users - Register a new user
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUserInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	user, err := s.services.Users.CreateUser(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleGetMe handles GET /api/users/me - Get the authenticated user
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.GetUser(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleUpdatePaySettings handles PUT /api/users/me/pay-settings
func (s *Server) handleUpdatePaySettings(w http.ResponseWriter, r *http.Request) {
	var pay models.PaySettings
	if err := parseJSONBody(r, &pay); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	user, err := s.services.Users.UpdatePaySettings(r.Context(), userIDFrom(r), &pay)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleGmailStatus handles GET /api/users/me/gmail - Receipt scan connection status
func (s *Server) handleGmailStatus(w http.ResponseWriter, r *http.Request) {
	connected, email, err := s.services.Users.GmailConnectionStatus(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": connected,
		"email":     email,
	})
}

// handleGmailDisconnect handles DELETE /api/users/me/gmail
func (s *Server) handleGmailDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Users.DisconnectGmail(r.Context(), userIDFrom(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}
