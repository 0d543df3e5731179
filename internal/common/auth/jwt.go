// internal/common/auth/jwt.go
package auth

import (
	"fmt"
	"strings"
	"time"

	"loan-management-service/internal/common/config"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload carried by every authenticated request.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens and extracts the requesting user.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier creates a token verifier from the auth configuration.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Verifier{secret: []byte(cfg.JWTSecret), ttl: ttl}
}

// Verify parses an "Authorization: Bearer <token>" header value and returns
// the authenticated user.
func (v *Verifier) Verify(authorization string) (*models.User, error) {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return nil, apperrors.NewUnauthorizedError("missing bearer token")
	}
	raw := strings.TrimPrefix(authorization, "Bearer ")

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}

	role := models.Role(claims.Role)
	switch role {
	case models.RoleAdmin, models.RoleEmployee, models.RoleViewer:
	default:
		role = models.RoleViewer
	}

	return &models.User{
		ID:    claims.UID,
		Email: claims.Email,
		Role:  role,
	}, nil
}

// Issue signs a token for a user. Used by the admin tooling and the tests.
func (v *Verifier) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:   user.ID,
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			Subject:   user.ID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
