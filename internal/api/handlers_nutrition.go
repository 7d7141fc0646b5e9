package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
)

// handleComputeTargets handles POST /api/nutrition/targets - Compute daily
// targets from a profile and store them for the shopping week.
func (s *Server) handleComputeTargets(w http.ResponseWriter, r *http.Request) {
	var input service.ComputeTargetsInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	target, err := s.services.Nutrition.ComputeTargets(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, target)
}

// handleGetWeekTargets handles GET /api/nutrition/targets?anchor=2025-07-02
func (s *Server) handleGetWeekTargets(w http.ResponseWriter, r *http.Request) {
	anchor, ok := queryDate(r, "anchor")
	if !ok {
		anchor = time.Now().UTC()
	}

	target, err := s.services.Nutrition.GetWeekTargets(r.Context(), userIDFrom(r), anchor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, target)
}

// handleListTargets handles GET /api/nutrition/targets/history?limit=12
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.services.Nutrition.ListTargets(r.Context(), userIDFrom(r), queryInt(r, "limit", 12))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, targets)
}

// handleMealPlanWindow handles GET /api/mealplan/window?anchor=2025-07-02
// Returns the 9-day shopping window with blackout dates subtracted.
func (s *Server) handleMealPlanWindow(w http.ResponseWriter, r *http.Request) {
	anchor, _ := queryDate(r, "anchor")

	plan, err := s.services.MealPlan.Window(r.Context(), userIDFrom(r), anchor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

// handleCreateBlackout handles POST /api/mealplan/blackouts
func (s *Server) handleCreateBlackout(w http.ResponseWriter, r *http.Request) {
	var input service.CreateBlackoutInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	blackout, err := s.services.MealPlan.CreateBlackout(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, blackout)
}

// handleListBlackouts handles GET /api/mealplan/blackouts?from=...&to=...
func (s *Server) handleListBlackouts(w http.ResponseWriter, r *http.Request) {
	from, fromOK := queryDate(r, "from")
	to, toOK := queryDate(r, "to")
	if !fromOK {
		from = time.Now().UTC()
	}
	if !toOK {
		to = from.AddDate(0, 3, 0)
	}

	blackouts, err := s.services.MealPlan.ListBlackouts(r.Context(), userIDFrom(r), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, blackouts)
}

// handleDeleteBlackout handles DELETE /api/mealplan/blackouts/:id
func (s *Server) handleDeleteBlackout(w http.ResponseWriter, r *http.Request) {
	if err := s.services.MealPlan.DeleteBlackout(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
