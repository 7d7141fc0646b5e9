package api

import (
	"net/http"

	"github.com/home-ledger/internal/service"
)

// handleCreateOrder handles POST /api/orders - Record an order by hand
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var input service.CreateOrderInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	order, err := s.services.Orders.CreateOrder(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// handleListOrders handles GET /api/orders?limit=50&offset=0
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.services.Orders.ListOrders(r.Context(), userIDFrom(r), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}
