package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/service"
)

// shipmentResponse bundles a shipment with its event history.
type shipmentResponse struct {
	Shipment *models.Shipment        `json:"shipment"`
	Events   []*models.ShipmentEvent `json:"events"`
}

// handleCreateShipment handles POST /api/shipments - Start tracking a parcel
func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var input service.CreateShipmentInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	shipment, err := s.services.Shipments.CreateShipment(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, shipment)
}

// handleListShipments handles GET /api/shipments?active=true
func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request) {
	shipments, err := s.services.Shipments.ListShipments(r.Context(), userIDFrom(r), queryBool(r, "active"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipments)
}

// handleGetShipment handles GET /api/shipments/:id - Shipment with events
func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	shipment, events, err := s.services.Shipments.GetShipment(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipmentResponse{Shipment: shipment, Events: events})
}

// handleDeleteShipment handles DELETE /api/shipments/:id
func (s *Server) handleDeleteShipment(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Shipments.DeleteShipment(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleRefreshShipment handles POST /api/shipments/:id/refresh - Poll the
// tracking provider for this shipment now.
func (s *Server) handleRefreshShipment(w http.ResponseWriter, r *http.Request) {
	shipment, err := s.services.Shipments.Refresh(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipment)
}
