package middleware

import (
	"errors"
	"net/http"

	"github.com/bomanihosts/backend/internal/api/problem"
)

// DefaultMaxBodySize is the body limit for every API endpoint.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize limits the size of incoming request bodies.
//
// A declared Content-Length above maxBytes is refused with 413 up front;
// otherwise the body is wrapped with http.MaxBytesReader and handlers see a
// *http.MaxBytesError when they read past the limit.
func RequestSize(maxBytes int64, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				err := &http.MaxBytesError{Limit: maxBytes}
				problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Request body too large", err, env)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from reading past the RequestSize limit.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
