package middleware

import (
	"net/http"
)

// RequestObserver counts served requests.
type RequestObserver interface {
	ObserveRequest(pattern string, status int)
}

// Metrics returns a per-route wrapper for handlers.Register. Labelling by the
// route pattern keeps path parameters out of label values.
func Metrics(observer RequestObserver) func(pattern string, next http.Handler) http.Handler {
	return func(pattern string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)
			next.ServeHTTP(rec, r)
			observer.ObserveRequest(pattern, rec.status)
		})
	}
}
