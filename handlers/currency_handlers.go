package handlers

import (
	"net/http"

	"hearth-backend/ledger"
)

func GetCurrencies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ledger.CommonCurrencies)
}
