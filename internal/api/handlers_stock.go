package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
)

// handleCreateItem handles POST /api/toiletries
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var input service.CreateItemInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	item, err := s.services.Stock.CreateItem(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// handleListItems handles GET /api/toiletries
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Stock.ListItems(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// handleGetItem handles GET /api/toiletries/:id
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.services.Stock.GetItem(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleUpdateItem handles PUT /api/toiletries/:id
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateItemInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	item, err := s.services.Stock.UpdateItem(r.Context(), userIDFrom(r), mux.Vars(r)["id"], &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleDeleteItem handles DELETE /api/toiletries/:id
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Stock.DeleteItem(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleLogUsage handles POST /api/toiletries/:id/usage
func (s *Server) handleLogUsage(w http.ResponseWriter, r *http.Request) {
	var input service.LogUsageInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)
	input.ItemID = mux.Vars(r)["id"]

	usage, err := s.services.Stock.LogUsage(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, usage)
}

// handleListUsage handles GET /api/toiletries/:id/usage
func (s *Server) handleListUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.services.Stock.ListUsage(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// handleAddPurchase handles POST /api/toiletries/:id/purchases
func (s *Server) handleAddPurchase(w http.ResponseWriter, r *http.Request) {
	var input service.AddPurchaseInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)
	input.ItemID = mux.Vars(r)["id"]

	purchase, err := s.services.Stock.AddPurchase(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, purchase)
}

// handleListPurchases handles GET /api/toiletries/:id/purchases
func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.services.Stock.ListPurchases(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, purchases)
}

// handleForecastItem handles GET /api/toiletries/:id/forecast
func (s *Server) handleForecastItem(w http.ResponseWriter, r *http.Request) {
	forecast, err := s.services.Stock.ForecastItem(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, forecast)
}

// handleForecastAll handles GET /api/toiletries/forecast - Forecast every item
func (s *Server) handleForecastAll(w http.ResponseWriter, r *http.Request) {
	forecasts, err := s.services.Stock.ForecastAll(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, forecasts)
}
