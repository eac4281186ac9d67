package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/arenalab/arena-server/internal/api/apierr"
	"github.com/arenalab/arena-server/internal/services/admission"
)

// RateLimit creates admission-gate middleware. The gate counts per client
// address, before any room interaction happens.
func RateLimit(gate *admission.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if err := gate.Allow(key); err != nil {
				retryAfter := int(gate.RetryAfter(key).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				apierr.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the client for rate limiting purposes
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
