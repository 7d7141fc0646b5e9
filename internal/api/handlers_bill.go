package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
)

// handleCreateBill handles POST /api/bills - Create a recurring bill
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var input service.CreateBillInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	bill, err := s.services.Bills.CreateBill(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, bill)
}

// handleListBills handles GET /api/bills?active=true
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.services.Bills.ListBills(r.Context(), userIDFrom(r), queryBool(r, "active"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bills)
}

// handleGetBill handles GET /api/bills/:id
func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.services.Bills.GetBill(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bill)
}

// handleUpdateBill handles PUT /api/bills/:id
func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateBillInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	bill, err := s.services.Bills.UpdateBill(r.Context(), userIDFrom(r), mux.Vars(r)["id"], &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bill)
}

// handleDeleteBill handles DELETE /api/bills/:id
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Bills.DeleteBill(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleBillOccurrences handles GET /api/bills/occurrences?year=2025&month=7
func (s *Server) handleBillOccurrences(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "month must be between 1 and 12", nil)
		return
	}

	occurrences, err := s.services.Bills.MonthOccurrences(r.Context(), userIDFrom(r), year, time.Month(month))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, occurrences)
}

// handleCycleSummary handles GET /api/cycle/summary - Current pay-cycle view
func (s *Server) handleCycleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.services.Bills.CurrentCycleSummary(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
