package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
)

// handleCreateService handles POST /api/subscriptions
func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var input service.CreateServiceInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	svc, err := s.services.Subscriptions.CreateService(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, svc)
}

// handleListServices handles GET /api/subscriptions
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.services.Subscriptions.ListServices(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, services)
}

// handleGetService handles GET /api/subscriptions/:id
func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.services.Subscriptions.GetService(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, svc)
}

// handleUpdateService handles PUT /api/subscriptions/:id
func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateServiceInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	svc, err := s.services.Subscriptions.UpdateService(r.Context(), userIDFrom(r), mux.Vars(r)["id"], &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, svc)
}

// handleDeleteService handles DELETE /api/subscriptions/:id
func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Subscriptions.DeleteService(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleRecordComparison handles POST /api/subscriptions/:id/comparisons
func (s *Server) handleRecordComparison(w http.ResponseWriter, r *http.Request) {
	var input service.RecordComparisonInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)
	input.ServiceID = mux.Vars(r)["id"]

	comparison, err := s.services.Subscriptions.RecordComparison(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, comparison)
}

// handleSubscriptionReview handles GET /api/subscriptions/review - Services
// worth looking at: contracts ending soon or cheaper alternatives on record.
func (s *Server) handleSubscriptionReview(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Subscriptions.Review(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}
