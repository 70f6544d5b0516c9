package handlers

import (
	"net/http"

	"hearth-backend/ledger"
	"hearth-backend/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	householdID, err := householdParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	balances, err := h.settlementService.GetBalances(r.Context(), householdID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balances)
}

func (h *Handlers) GetSettlements(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	householdID, err := householdParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	settlements, err := h.settlementService.ListByHousehold(r.Context(), householdID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, settlements)
}

func (h *Handlers) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	householdID, err := householdParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.SettlementInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	settlement, err := h.settlementService.Create(r.Context(), householdID, userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, settlement)
}

// AcceptSuggestion records one entry of the current payment plan as paid.
func (h *Handlers) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	householdID, err := householdParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req ledger.SettlementSuggestion
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	settlement, err := h.settlementService.AcceptSuggestion(r.Context(), householdID, userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, settlement)
}

func (h *Handlers) DeleteSettlement(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.settlementService.Delete(r.Context(), chi.URLParam(r, "settlementID"), userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
