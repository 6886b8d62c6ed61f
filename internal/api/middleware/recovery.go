package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/bomanihosts/backend/internal/api/problem"
)

// Recovery turns a panic in a downstream handler into a 500 problem response
// instead of dropping the connection.
func Recovery(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFromContext(r.Context()).Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				problem.Write(w, nil, http.StatusInternalServerError, problem.TypeServerError, "Server error", fmt.Errorf("panic: %v", rec), env)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
