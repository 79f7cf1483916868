package auth

import (
	"context"
	"net/http"
)

type contextKey struct{}

var claimsKey contextKey

// ClaimsFromContext returns the access claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*AccessClaims)
	return claims, ok
}

// ContextWithClaims injects access claims directly, bypassing token
// verification. Intended for handler tests.
func ContextWithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Middleware rejects requests without a valid bearer access token and stores
// the verified claims in the request context for downstream handlers.
func Middleware(codec *TokenCodec, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := codec.VerifyAccess(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
