package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
)

const maxJSONBody = 1 << 20

type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Success    bool     `json:"success"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	respondJSON(ctx, w, status, envelope{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

func respondFailure(ctx context.Context, w http.ResponseWriter, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	respondJSON(ctx, w, status, errorEnvelope{StatusCode: status, Message: message, Errors: details})
}

// respondError maps a service failure to its HTTP status. Internal causes
// are logged and never sent to the client.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperr.As(err)
	status := statusFor(appErr)
	logger := logging.FromContext(ctx)

	message := appErr.Message
	details := appErr.Details
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "kind", appErr.Kind, "error", err)
		if appErr.Kind == apperr.KindInternal {
			message = "internal server error"
		}
	default:
		logger.Warn("request returned client error", "status", status, "kind", appErr.Kind, "message", appErr.Message)
	}
	if len(details) == 0 && appErr.Reason != apperr.ReasonNone {
		details = []string{string(appErr.Reason)}
	}

	respondFailure(ctx, w, status, message, details...)
}

func statusFor(err *apperr.Error) int {
	switch err.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		if err.Reason == apperr.ReasonForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperr.Validation("request body too large")
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body", err.Error())
	}
	return nil
}
