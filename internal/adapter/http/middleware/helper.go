package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody matches the handler package error envelope.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// errorResponse writes a JSON error. The request ID is taken from the
// response header set by RequestID, so it is empty for requests rejected
// before that middleware ran.
func errorResponse(w http.ResponseWriter, status int, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="ride-gateway"`)
	}

	body, err := json.Marshal(errorBody{Error: message, RequestID: w.Header().Get(RequestIDHeader)})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
