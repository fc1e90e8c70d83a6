package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/redmonkez12/account-service/internal/httputil"
	"github.com/redmonkez12/account-service/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	userContextKey   ContextKey = "auth_user"
	claimsContextKey ContextKey = "auth_claims"
)

// Guard authenticates protected routes. Require(kind) verifies the bearer
// token, enforces its kind, consults the revocation ledger, and stores the
// subject and claims in the request context. Every failure collapses to a
// single 401 so callers cannot probe which check rejected them.
type Guard struct {
	codec  *Codec
	ledger Ledger
}

func NewGuard(codec *Codec, ledger Ledger) *Guard {
	return &Guard{codec: codec, ledger: ledger}
}

// Require returns middleware that admits only a valid, non-revoked token of
// the given kind. KindAny admits either kind.
func (g *Guard) Require(kind Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims, subject, err := g.codec.Verify(r.Context(), token)
			if err != nil {
				httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			if kind != KindAny && claims.Kind != kind {
				httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			revoked, err := g.ledger.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				httputil.RespondError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if revoked {
				httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, subject)
			ctx = context.WithValue(ctx, claimsContextKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// UserFromContext extracts the authenticated user from the request context
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok
}

// ClaimsFromContext extracts the verified token claims from the request context
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}
