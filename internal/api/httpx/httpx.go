package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wastepay/payment-service/internal/gateway"
	"github.com/wastepay/payment-service/internal/repository"
	"github.com/wastepay/payment-service/internal/services"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteServiceError maps the error taxonomy to stable code/message pairs.
// Client-caused failures get 4xx; everything else is a 5xx with the detail
// kept in the server log, never the response body.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "wallet not found", nil)
	case errors.Is(err, repository.ErrInsufficientFunds):
		WriteError(w, http.StatusBadRequest, "insufficient_funds", "insufficient funds", nil)
	case errors.Is(err, repository.ErrWalletNotActive):
		WriteError(w, http.StatusConflict, "wallet_not_active", "wallet is not active", nil)
	case errors.Is(err, services.ErrInvalidSignature):
		WriteError(w, http.StatusBadRequest, "invalid_signature", "payment verification failed", nil)
	case errors.Is(err, services.ErrBadRequest):
		WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, gateway.ErrUnavailable):
		WriteError(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway unavailable", nil)
	case errors.Is(err, services.ErrWalletUpdateFailed):
		WriteError(w, http.StatusInternalServerError, "wallet_update_failed", "could not update wallet", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
