package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the logged-in user carried by a session token. It seeds the
// conversation state so the assistant never re-asks name or email.
type Identity struct {
	Name  string
	Email string
}

// IdentityClaims is the JWT payload issued at login.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionIdentity extracts the user identity from an HMAC-signed bearer
// token when one is present. Requests without a token pass through
// anonymously; only a malformed or forged token is rejected.
func SessionIdentity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if secret == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims := &IdentityClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				Name:  claims.Name,
				Email: claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}
