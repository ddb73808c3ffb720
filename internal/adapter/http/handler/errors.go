package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/middleware"
)

// errorResponse writes {"error": message} and echoes the request ID set by
// the middleware so clients can quote it in reports.
func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}
	if id := w.Header().Get(middleware.RequestIDHeader); id != "" {
		env["request_id"] = id
	}

	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// failedValidationResponse returns 422 with the field errors.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

func internalErrorResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusInternalServerError, message)
}
