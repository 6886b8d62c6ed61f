package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bomanihosts/backend/internal/api/middleware"
	"github.com/bomanihosts/backend/internal/api/problem"
	"github.com/bomanihosts/backend/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads the request body into dst. An empty body leaves dst at its
// zero value so missing fields surface as validation errors. It writes the
// error response itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, env string, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return true
	case middleware.IsBodyTooLarge(err):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Request body too large", err, env)
	default:
		problem.Write(w, r, http.StatusBadRequest, problem.TypeMalformed, "Malformed request body", err, env,
			problem.WithDetail("Request body must be a valid JSON object."))
	}
	return false
}

func writeValidation(w http.ResponseWriter, r *http.Request, env string, errs validation.Errors) {
	problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeValidation, "Validation failed", errs, env,
		problem.WithDetail("One or more fields are invalid."),
		problem.WithErrors(errs))
}

func writeServerError(w http.ResponseWriter, r *http.Request, env string, err error) {
	problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
}
