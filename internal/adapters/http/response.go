package http

import (
	"encoding/json"
	"net/http"
)

// apiError is the error envelope for the tipping edge. Retryable tells
// the client whether repeating the request (with the same Idempotency-Key
// for tips) is safe; STATUS_UNKNOWN is deliberately not retryable because
// the transaction may already be on-chain.
type apiError struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// retryableCodes marks failures where the request provably did not reach
// the chain, so the client may safely try again.
var retryableCodes = map[string]bool{
	"NETWORK_UNAVAILABLE": true,
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:    "error",
		Code:      code,
		Message:   message,
		Retryable: retryableCodes[code],
	})
}
