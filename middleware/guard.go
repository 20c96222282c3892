package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	sessiongate "github.com/hexlago/sessiongate"
)

type admissionContextKey struct{}

// AdmissionFromContext returns the admission injected by [Guard] for an
// authenticated request.
func AdmissionFromContext(ctx context.Context) (*sessiongate.Admission, bool) {
	admission, ok := ctx.Value(admissionContextKey{}).(*sessiongate.Admission)
	return admission, ok
}

type errorBody struct {
	Error string `json:"error"`
}

// Guard wraps a handler with gate authentication. Missing, invalid,
// expired, revoked, and superseded credentials produce a 401 with a
// reason-differentiated JSON message; a subject failing the membership
// predicate produces a 403. The client IP is attached to the request
// context for audit events.
func Guard(gate *sessiongate.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				writeDenial(w, &sessiongate.Denial{Kind: sessiongate.RejectStoreUnavailable})
				return
			}

			ctx := sessiongate.WithClientIP(r.Context(), clientIP(r))

			credential, _ := bearerCredential(r.Header.Get("Authorization"))

			admission, err := gate.Authenticate(ctx, credential)
			if err != nil {
				if denial, ok := sessiongate.AsDenial(err); ok {
					writeDenial(w, denial)
					return
				}
				writeDenial(w, &sessiongate.Denial{Kind: sessiongate.RejectStoreUnavailable})
				return
			}

			ctx = context.WithValue(ctx, admissionContextKey{}, admission)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeDenial(w http.ResponseWriter, denial *sessiongate.Denial) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(denial.HTTPStatus())
	_ = json.NewEncoder(w).Encode(errorBody{Error: denial.Message()})
}

func bearerCredential(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	credential := value[len(bearer):]
	if credential == "" {
		return "", false
	}

	return credential, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
