package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/home-ledger/internal/service"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// handleCreateCategory handles POST /api/categories
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input service.CreateCategoryInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	category, err := s.services.Ledger.CreateCategory(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, category)
}

// handleListCategories handles GET /api/categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.services.Ledger.ListCategories(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

// handleDeleteCategory handles DELETE /api/categories/:id
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Ledger.DeleteCategory(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleCreateAccount handles POST /api/accounts
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var input service.CreateMoneyAccountInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	account, err := s.services.Ledger.CreateAccount(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// handleListAccounts handles GET /api/accounts
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.services.Ledger.ListAccounts(r.Context(), userIDFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, accounts)
}

// handleDeleteAccount handles DELETE /api/accounts/:id
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Ledger.DeleteAccount(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleCreateTransaction handles POST /api/transactions
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input service.CreateTransactionInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.UserID = userIDFrom(r)

	tx, err := s.services.Ledger.CreateTransaction(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// handleListTransactions handles GET /api/transactions with optional filters:
// from, to, categoryId, accountId, direction, limit, offset.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := storage.TransactionFilter{
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	}
	if from, ok := queryDate(r, "from"); ok {
		filter.From = &from
	}
	if to, ok := queryDate(r, "to"); ok {
		filter.To = &to
	}
	if categoryID := r.URL.Query().Get("categoryId"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if accountID := r.URL.Query().Get("accountId"); accountID != "" {
		filter.AccountID = &accountID
	}
	if raw := r.URL.Query().Get("direction"); raw != "" {
		direction := types.TransactionDirection(raw)
		if direction != types.DirectionIn && direction != types.DirectionOut {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "direction must be 'in' or 'out'", nil)
			return
		}
		filter.Direction = &direction
	}

	txs, err := s.services.Ledger.ListTransactions(r.Context(), userIDFrom(r), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, txs)
}

// handleGetTransaction handles GET /api/transactions/:id
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.services.Ledger.GetTransaction(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction handles DELETE /api/transactions/:id
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Ledger.DeleteTransaction(r.Context(), userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
