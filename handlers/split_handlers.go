package handlers

import (
	"net/http"

	apperrors "hearth-backend/errors"
	"hearth-backend/ledger"
	"hearth-backend/services"

	"github.com/google/uuid"
)

type SplitRequest struct {
	AmountCents int64               `json:"amount_cents"`
	SplitType   ledger.SplitType    `json:"split_type"`
	Members     []ledger.SplitInput `json:"members"`
}

type SplitValidationResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// PreviewSplit returns the per-member amounts a form would produce before
// the expense is saved.
func PreviewSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	results, err := ledger.ComputeSplits(req.AmountCents, req.SplitType, req.Members)
	if err != nil {
		handleError(w, apperrors.InvalidSplit(err))
		return
	}

	respondJSON(w, http.StatusOK, results)
}

func ValidateSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	if err := ledger.ValidateSplits(req.AmountCents, req.SplitType, req.Members); err != nil {
		respondJSON(w, http.StatusOK, SplitValidationResponse{Valid: false, Message: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, SplitValidationResponse{Valid: true})
}

func (h *Handlers) SuggestSplit(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.SplitSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	if req.HouseholdID != "" {
		if _, err := uuid.Parse(req.HouseholdID); err != nil {
			handleError(w, apperrors.InvalidUUID("household id"))
			return
		}
	}

	suggestion, err := h.splitSuggestionService.Suggest(r.Context(), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, suggestion)
}
