package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// statusFor maps an error to an HTTP status by its code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; the status is only logged
		return 499
	}

	switch amanerrors.GetCode(err) {
	case amanerrors.ErrCodeInvalidInput, amanerrors.ErrCodeQueryEmpty,
		amanerrors.ErrCodeDimensionMismatch, amanerrors.ErrCodeInvalidOptions:
		return http.StatusBadRequest
	case amanerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case amanerrors.ErrCodeDataDirLocked:
		return http.StatusConflict
	case amanerrors.ErrCodeRetrievalUnavailable, amanerrors.ErrCodeExpansionFailed,
		amanerrors.ErrCodeGenerationFailed, amanerrors.ErrCodeEmbeddingFailed,
		amanerrors.ErrCodeModelServerDown:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http_response_encode_failed", slog.String("error", err.Error()))
	}
}

// respondError writes {"error": {...}} with the error's code, message and suggestion.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if err == nil {
		err = amanerrors.InternalError("unknown error", nil)
	}
	if status >= 500 {
		slog.Error("http_request_failed",
			append([]any{slog.String("request_id", RequestIDFrom(r.Context())), slog.String("path", r.URL.Path)},
				amanerrors.LogAttrs(err)...)...)
	}
	body, mErr := amanerrors.FormatJSON(err)
	if mErr != nil {
		body = []byte(`{"code":"ERR_501_INTERNAL","message":"error encoding failed"}`)
	}
	respondJSON(w, status, map[string]json.RawMessage{"error": body})
}

func badRequest(message string, cause error) error {
	return amanerrors.ValidationError(message, cause)
}
