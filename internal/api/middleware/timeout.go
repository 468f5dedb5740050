package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout puts an overall deadline on each request's context so a
// stalled ingestion or upstream call cannot hold a handler past the budget.
// A zero timeout disables the deadline.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
