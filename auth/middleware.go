package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"pairchat/domain"
	errs "pairchat/errors"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware verifies the Authorization bearer token and stores the
// resulting identity in the request context.
func Middleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			identity := domain.Identity{UserID: claims.UserID, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom extracts the authenticated identity placed by Middleware.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"kind":  errs.KindUnauthorized,
		"error": reason,
	})
}
