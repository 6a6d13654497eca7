package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/okhomenko/eventgate/internal/application"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// WriteError maps err through the application taxonomy and renders the
// uniform error envelope. 5xx causes are logged; 4xx are the client's
// problem and only get a debug line.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := application.ToHTTPStatus(err)
	code := application.ToErrorCode(err)

	message := err.Error()
	if svcErr, ok := application.IsServiceError(err); ok {
		message = svcErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "status", status, "error", err)
		message = "an internal error occurred"
		if status != http.StatusInternalServerError {
			message = "payment provider unavailable"
		}
	} else {
		logger.Debug("request rejected", "code", code, "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: message},
	})
}

func WriteErrorCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: message},
	})
}

func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
