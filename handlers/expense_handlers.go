package handlers

import (
	"net/http"

	apperrors "hearth-backend/errors"
	"hearth-backend/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var allowedReceiptTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
}

func (h *Handlers) GetExpenses(w http.ResponseWriter, r *http.Request) {
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

	expenses, err := h.expenseService.ListByHousehold(r.Context(), householdID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	expense, err := h.expenseService.GetByID(r.Context(), chi.URLParam(r, "expenseID"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, expense)
}

func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
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

	var req services.ExpenseInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	expense, err := h.expenseService.Create(r.Context(), householdID, userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, expense)
}

func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.ExpenseInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	expense, err := h.expenseService.Update(r.Context(), chi.URLParam(r, "expenseID"), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, expense)
}

func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.expenseService.Delete(r.Context(), chi.URLParam(r, "expenseID"), userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}

	expenseID := chi.URLParam(r, "expenseID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		zap.L().Debug("Failed to parse receipt upload", zap.String("expense_id", expenseID), zap.Error(err))
		handleError(w, apperrors.InvalidRequest("Failed to parse multipart form. The receipt may be too large."))
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		handleError(w, apperrors.MissingRequiredField("Receipt file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !allowedReceiptTypes[contentType] {
		handleError(w, apperrors.InvalidRequest("Invalid receipt format. Supported formats: JPEG, PNG, WebP, HEIC, PDF."))
		return
	}

	expense, err := h.expenseService.AttachReceipt(r.Context(), expenseID, userID, file, header.Filename, contentType)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, expense)
}
