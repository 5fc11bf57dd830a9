package middleware

import (
	"net/http"

	"github.com/mentanova-ai/mentanova/internal/api"
)

// BodyLimit rejects requests whose declared Content-Length exceeds limit and
// caps streamed bodies at the same size, so an oversized retrieval payload
// never reaches the JSON decoder. A non-positive limit disables the check.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
