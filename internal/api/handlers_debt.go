package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
)

// handleCreateDebt handles POST /api/debts
func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var input service.CreateDebtInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	debt, err := s.services.Debts.CreateDebt(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, debt)
}

// handleListDebts handles GET /api/debts - Debts with balances, smallest first
func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.services.Debts.ListDebts(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, debts)
}

// handleGetDebt handles GET /api/debts/:id
func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := s.services.Debts.GetDebt(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, debt)
}

// handleUpdateDebt handles PUT /api/debts/:id
func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateDebtInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	debt, err := s.services.Debts.UpdateDebt(r.Context(), userIDFrom(r), mux.Vars(r)["id"], &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, debt)
}

// handleDeleteDebt handles DELETE /api/debts/:id
func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Debts.DeleteDebt(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleAddDebtPayment handles POST /api/debts/:id/payments
func (s *Server) handleAddDebtPayment(w http.ResponseWriter, r *http.Request) {
	var input service.AddPaymentInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)
	input.DebtID = mux.Vars(r)["id"]

	payment, err := s.services.Debts.AddPayment(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, payment)
}

// handleListDebtPayments handles GET /api/debts/:id/payments
func (s *Server) handleListDebtPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.services.Debts.ListPayments(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payments)
}

// handleDeleteDebtPayment handles DELETE /api/debts/:id/payments/:paymentID
func (s *Server) handleDeleteDebtPayment(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Debts.DeletePayment(r.Context(), userIDFrom(r), mux.Vars(r)["paymentID"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
