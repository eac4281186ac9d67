package middleware

import (
	"net/http"

	"github.com/arenalab/arena-server/internal/api/apierr"
	"github.com/arenalab/arena-server/internal/services/admission"
)

// Operator guards the monitor surface behind the operator credential
func Operator(gate *admission.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, secret, ok := r.BasicAuth()
			if !ok {
				challenge(w)
				return
			}
			if err := gate.CheckOperator(user, secret); err != nil {
				challenge(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="monitor"`)
	apierr.WriteError(w, apierr.NewUnauthorizedError())
}
