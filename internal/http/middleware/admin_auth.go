package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const adminClaimsKey contextKey = "adminClaims"

// adminRole is the role claim required on back-office tokens. A correctly
// signed session token must not open the admin surface.
const adminRole = "admin"

// AdminClaims is the payload of tokens minted for the appointments back
// office.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AdminJWT guards the appointment administration endpoints. Unlike
// SessionIdentity there is no anonymous pass-through: every request needs a
// valid admin token, and an unset secret closes the surface entirely.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				unauthorized(w, "admin api is disabled")
				return
			}
			claims, err := parseAdminToken(r, secret)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseAdminToken(r *http.Request, secret string) (AdminClaims, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return AdminClaims{}, errors.New("missing bearer token")
	}
	claims := AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return AdminClaims{}, errors.New("invalid admin token")
	}
	if claims.Role != adminRole {
		return AdminClaims{}, errors.New("token lacks the admin role")
	}
	return claims, nil
}

// AdminClaimsFromContext returns the back-office claims, if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
