// internal/common/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier() *Verifier {
	return NewVerifier(config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1})
}

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := newTestVerifier()

	token, err := v.Issue(&models.User{ID: "user-1", Email: "u@example.com", Role: models.RoleEmployee})
	require.NoError(t, err)

	user, err := v.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, models.RoleEmployee, user.Role)
}

func TestVerifier_RejectsMalformedHeader(t *testing.T) {
	v := newTestVerifier()

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer not-a-token"} {
		_, err := v.Verify(header)
		assert.Error(t, err, "header %q", header)
	}
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	other := NewVerifier(config.AuthConfig{JWTSecret: "other-secret", TokenTTLHours: 1})
	token, err := other.Issue(&models.User{ID: "user-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = newTestVerifier().Verify("Bearer " + token)
	assert.Error(t, err)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	v := newTestVerifier()

	claims := Claims{
		UID:  "user-1",
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = v.Verify("Bearer " + token)
	assert.Error(t, err)
}

func TestVerifier_UnknownRoleDowngradesToViewer(t *testing.T) {
	v := newTestVerifier()
	token, err := v.Issue(&models.User{ID: "user-1", Role: models.Role("superuser")})
	require.NoError(t, err)

	user, err := v.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, user.Role)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       models.Role
		permission Permission
		want       bool
	}{
		{models.RoleAdmin, PermMastersEdit, true},
		{models.RoleAdmin, PermApplicationsDelete, true},
		{models.RoleEmployee, PermApplicationsCreate, true},
		{models.RoleEmployee, PermMastersEdit, false},
		{models.RoleEmployee, PermApplicationsDecide, false},
		{models.RoleViewer, PermApplicationsView, true},
		{models.RoleViewer, PermApplicationsCreate, false},
		{models.Role("unknown"), PermApplicationsView, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.permission), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission))
		})
	}
}
