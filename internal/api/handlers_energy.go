package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
	"github.com/home-ledger/internal/types"
)

// handleCreateTariff handles POST /api/energy/tariffs
func (s *Server) handleCreateTariff(w http.ResponseWriter, r *http.Request) {
	var input service.CreateTariffInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	tariff, err := s.services.Energy.CreateTariff(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tariff)
}

// handleListTariffs handles GET /api/energy/tariffs?fuel=electricity
func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	fuel := types.Fuel(r.URL.Query().Get("fuel"))

	tariffs, err := s.services.Energy.ListTariffs(r.Context(), userIDFrom(r), fuel)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tariffs)
}

// handleDeleteTariff handles DELETE /api/energy/tariffs/:id
func (s *Server) handleDeleteTariff(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Energy.DeleteTariff(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleIngestReadings handles POST /api/energy/readings - Batch meter readings
func (s *Server) handleIngestReadings(w http.ResponseWriter, r *http.Request) {
	var inputs []service.IngestReadingInput
	if err := parseJSONBody(r, &inputs); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	stored, err := s.services.Energy.IngestReadings(r.Context(), userIDFrom(r), inputs)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int{"stored": stored})
}

// handleListReadings handles GET /api/energy/readings?fuel=gas&from=...&to=...
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	fuel := types.Fuel(r.URL.Query().Get("fuel"))
	from, fromOK := queryDate(r, "from")
	to, toOK := queryDate(r, "to")
	if !fromOK || !toOK {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "from and to dates are required", nil)
		return
	}

	readings, err := s.services.Energy.ListReadings(r.Context(), userIDFrom(r), fuel, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, readings)
}

// handleDailyUsage handles GET /api/energy/daily?fuel=gas&from=...&to=...
// Returns per-day consumption priced against the tariff in force.
func (s *Server) handleDailyUsage(w http.ResponseWriter, r *http.Request) {
	fuel := types.Fuel(r.URL.Query().Get("fuel"))
	from, fromOK := queryDate(r, "from")
	to, toOK := queryDate(r, "to")
	if !fromOK || !toOK {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "from and to dates are required", nil)
		return
	}

	usage, err := s.services.Energy.DailyUsage(r.Context(), userIDFrom(r), fuel, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, usage)
}
