package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds a request's context and answers with the error envelope when
// the handler overruns. The 3-D Secure callback needs two gateway round trips,
// so timeout should cover twice the bank timeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			timeoutHandler := http.TimeoutHandler(
				next,
				timeout,
				`{"success":false,"error":{"code":"TIMEOUT","message":"Request timeout","retryable":true}}`,
			)

			timeoutHandler.ServeHTTP(w, r)
		})
	}
}
