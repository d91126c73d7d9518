package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotengine/libs/httpx"
)

type claimsKey struct{}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Require rejects requests without a valid bearer token. With roles given, the token's
// role must be one of them.
func Require(v *Verifier, roles ...string) httpx.Middleware {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			claims, err := v.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if len(allowed) > 0 {
				if _, ok := allowed[claims.Role]; !ok {
					httpx.WriteError(w, http.StatusForbidden, "forbidden")
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
