package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tempora-ai/be-timesheets/internal/errors"
)

// Roles recognized by the API. Developers manage their own entries,
// managers review them, admins control locks and billing.
const (
	RoleDeveloper = "developer"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
)

// Claims includes the registered claims plus the user's identity and role.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// GenerateToken signs an HS256 token for the given user.
func GenerateToken(userID, role string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
		Role:   role,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates a token string and returns its claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, errors.Unauthorized("Invalid token")
	}
	if !token.Valid {
		return nil, errors.Unauthorized("Invalid token")
	}

	return claims, nil
}

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the authenticated claims, or nil outside an
// authenticated request.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// Authenticate wraps a handler with Bearer token validation. The parsed
// claims are stored on the request context.
func (h *HTTPHandler) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(w, errors.Unauthorized("Missing bearer token"))
			return
		}

		claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "), h.jwtSecret)
		if err != nil {
			respondError(w, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// RequireRole wraps an authenticated handler with a role allowlist.
func (h *HTTPHandler) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return h.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		for _, role := range roles {
			if claims.Role == role {
				next(w, r)
				return
			}
		}
		respondError(w, errors.Unauthorized("Insufficient role for this operation"))
	})
}
