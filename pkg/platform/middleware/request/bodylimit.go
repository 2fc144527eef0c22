package request

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds JSON request bodies. Raw emails never travel
// through the API, so request bodies stay small.
const DefaultMaxBodyBytes int64 = 64 << 10

// BodyLimit caps request bodies with http.MaxBytesReader. Decoding an
// oversized body fails, and the connection is closed after the response.
// Apply it before any handler reads the body.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
