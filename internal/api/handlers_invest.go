package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
)

// handleCreateInvestAccount handles POST /api/investments
func (s *Server) handleCreateInvestAccount(w http.ResponseWriter, r *http.Request) {
	var input service.CreateAccountInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	account, err := s.services.Investments.CreateAccount(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// handleListInvestAccounts handles GET /api/investments
func (s *Server) handleListInvestAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.services.Investments.ListAccounts(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, accounts)
}

// handleGetInvestAccount handles GET /api/investments/:id
func (s *Server) handleGetInvestAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.services.Investments.GetAccount(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// handleDeleteInvestAccount handles DELETE /api/investments/:id
func (s *Server) handleDeleteInvestAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Investments.DeleteAccount(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleAddInvestTransaction handles POST /api/investments/:id/transactions
func (s *Server) handleAddInvestTransaction(w http.ResponseWriter, r *http.Request) {
	var input service.AddTransactionInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)
	input.AccountID = mux.Vars(r)["id"]

	tx, err := s.services.Investments.AddTransaction(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// handleListInvestTransactions handles GET /api/investments/:id/transactions
func (s *Server) handleListInvestTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.services.Investments.ListTransactions(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, txs)
}

// handleAddValuation handles POST /api/investments/:id/valuations - Record a
// manual valuation, replacing any same-day figure.
func (s *Server) handleAddValuation(w http.ResponseWriter, r *http.Request) {
	var input service.AddValuationInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)
	input.AccountID = mux.Vars(r)["id"]

	valuation, err := s.services.Investments.AddValuation(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, valuation)
}

// handleValuationSeries handles GET /api/investments/:id/series?from=...&to=...
func (s *Server) handleValuationSeries(w http.ResponseWriter, r *http.Request) {
	from, fromOK := queryDate(r, "from")
	to, toOK := queryDate(r, "to")
	if !fromOK {
		from = time.Now().UTC().AddDate(-1, 0, 0)
	}
	if !toOK {
		to = time.Now().UTC()
	}

	series, err := s.services.Investments.ValuationSeries(r.Context(), userIDFrom(r), mux.Vars(r)["id"], from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// handleProjection handles GET /api/investments/:id/projection?months=120&monthly=200
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", 120)
	monthly := queryFloat(r, "monthly", 0)

	projections, err := s.services.Investments.Projection(r.Context(), userIDFrom(r), mux.Vars(r)["id"], monthly, months)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, projections)
}

// handleRefreshQuote handles POST /api/investments/:id/quote - Fetch the
// latest market quote and store it as today's valuation.
func (s *Server) handleRefreshQuote(w http.ResponseWriter, r *http.Request) {
	valuation, err := s.services.Investments.RefreshQuote(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, valuation)
}
