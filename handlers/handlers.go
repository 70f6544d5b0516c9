package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "hearth-backend/errors"
	"hearth-backend/middleware"
	"hearth-backend/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type Handlers struct {
	expenseService         services.ExpenseService
	settlementService      services.SettlementService
	splitSuggestionService services.SplitSuggestionService
	maxUploadSize          int64
}

func NewHandlers(
	expenseService services.ExpenseService,
	settlementService services.SettlementService,
	splitSuggestionService services.SplitSuggestionService,
	maxUploadSize int64,
) *Handlers {
	return &Handlers{
		expenseService:         expenseService,
		settlementService:      settlementService,
		splitSuggestionService: splitSuggestionService,
		maxUploadSize:          maxUploadSize,
	}
}

// RegisterRoutes mounts everything except /splits/suggest, which main puts
// behind the tighter AI rate limit.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/currencies", GetCurrencies)

	r.Post("/splits/preview", PreviewSplit)
	r.Post("/splits/validate", ValidateSplit)

	r.Route("/households/{householdID}", func(r chi.Router) {
		r.Get("/expenses", h.GetExpenses)
		r.Post("/expenses", h.CreateExpense)
		r.Get("/balances", h.GetBalances)
		r.Get("/settlements", h.GetSettlements)
		r.Post("/settlements", h.CreateSettlement)
		r.Post("/settlements/accept", h.AcceptSuggestion)
	})

	r.Route("/expenses/{expenseID}", func(r chi.Router) {
		r.Get("/", h.GetExpense)
		r.Put("/", h.UpdateExpense)
		r.Delete("/", h.DeleteExpense)
		r.Post("/receipt", h.UploadReceipt)
	})

	r.Delete("/settlements/{settlementID}", h.DeleteSettlement)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("Failed to encode JSON response", zap.Error(err))
	}
}

func handleError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	if appErr, ok := apperrors.AsAppError(err); ok {
		status := apperrors.GetHTTPStatus(appErr.Type)

		if status >= 500 {
			zap.L().Error("App Error (Internal)",
				zap.String("code", string(appErr.Code)),
				zap.Error(appErr.Err))
		} else {
			zap.L().Debug("App Error (Client)",
				zap.String("code", string(appErr.Code)),
				zap.String("message", appErr.Message))
		}

		respondJSON(w, status, ErrorResponse{
			Error:   appErr.Message,
			Code:    string(appErr.Code),
			Details: appErr.Details,
		})
		return
	}

	zap.L().Error("Non-AppError returned (bug)",
		zap.Error(err),
		zap.String("error_type", fmt.Sprintf("%T", err)))

	internal := apperrors.InternalError(err)
	respondJSON(w, apperrors.GetHTTPStatus(internal.Type), ErrorResponse{
		Error: internal.Message,
		Code:  string(internal.Code),
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.InvalidRequest("Invalid request body. Please provide valid JSON.")
	}
	return nil
}

func getUserID(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return "", apperrors.Unauthorized("User ID not found in authentication context")
	}
	return userID, nil
}

func householdParam(r *http.Request) (string, error) {
	householdID := chi.URLParam(r, "householdID")
	if householdID == "" {
		return "", apperrors.MissingRequiredField("Household ID")
	}
	if _, err := uuid.Parse(householdID); err != nil {
		return "", apperrors.InvalidUUID("household id")
	}
	return householdID, nil
}
