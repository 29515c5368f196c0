package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type clientKey struct{}

// ClientFromContext returns the authenticated client name, or "" when the
// request was not authenticated.
func ClientFromContext(ctx context.Context) string {
	name, _ := ctx.Value(clientKey{}).(string)
	return name
}

func withClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientKey{}, name)
}

// LookupFunc resolves an API key to a client name.
type LookupFunc func(ctx context.Context, apiKey string) (string, error)

// BearerAuth rejects requests without a valid "Authorization: Bearer <key>"
// header with 401. Accepted requests carry the client name in their context.
func BearerAuth(lookup LookupFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				unauthorized(w, problem)
				return
			}

			name, err := lookup(r.Context(), key)
			if err != nil {
				unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClient(r.Context(), name)))
		})
	}
}

// bearerToken extracts the token from an Authorization header value. It
// returns a non-empty problem when the header is unusable.
func bearerToken(header string) (token, problem string) {
	if header == "" {
		return "", "authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization format, expected Bearer <token>"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty API key"
	}
	return token, ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="mailchannels-relay"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
