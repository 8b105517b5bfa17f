package transport

import (
	"encoding/json"
	"errors"
	"net/http"
)

const (
	codeUnauthorized = "UNAUTHORIZED"
	codeInternal     = "INTERNAL"
)

// codedError is implemented by the errors the handler returns.
type codedError interface {
	error
	CodeValue() string
	MessageValue() string
	RecoveryHintValue() string
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func statusForCode(code string) int {
	switch code {
	case "TABLE_NOT_FOUND", "ROW_NOT_FOUND", "UNKNOWN_METHOD":
		return http.StatusNotFound
	case "INVALID_INPUT", "INVALID_PORT", "EMPTY_PROTOCOL":
		return http.StatusBadRequest
	case "VOLUME_OUT_OF_RANGE":
		return http.StatusUnprocessableEntity
	case "DEVICE_UNAVAILABLE":
		return http.StatusBadGateway
	case codeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeAPIError renders err as the JSON error body. Errors without a code
// become INTERNAL and their text is not exposed.
func writeAPIError(w http.ResponseWriter, err error) {
	var coded codedError
	if errors.As(err, &coded) {
		code := coded.CodeValue()
		writeErrorBody(w, statusForCode(code), code, coded.MessageValue(), coded.RecoveryHintValue())
		return
	}
	writeErrorBody(w, http.StatusInternalServerError, codeInternal, "internal error", "")
}

func writeErrorBody(w http.ResponseWriter, status int, code, message, hint string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, RecoveryHint: hint}})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
