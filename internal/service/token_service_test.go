package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret", time.Hour, "vendor-ledger")
	subjectID := uuid.New()

	token, expiresAt, err := svc.Generate(subjectID, RoleVendor)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, subjectID, claims.SubjectID)
	assert.Equal(t, RoleVendor, claims.Role)
}

func TestJWTTokenService_AdminRole(t *testing.T) {
	svc := NewJWTTokenService("test-secret", time.Hour, "vendor-ledger")
	adminID := uuid.New()

	token, _, err := svc.Generate(adminID, RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTTokenService_UnknownRoleRejected(t *testing.T) {
	svc := NewJWTTokenService("test-secret", time.Hour, "vendor-ledger")

	token, _, err := svc.Generate(uuid.New(), "superuser")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService("test-secret", time.Hour, "vendor-ledger")
	other := NewJWTTokenService("other-secret", time.Hour, "vendor-ledger")

	token, _, err := svc.Generate(uuid.New(), RoleVendor)
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.Error(t, err)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret", -time.Minute, "vendor-ledger")

	token, _, err := svc.Generate(uuid.New(), RoleVendor)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
}

func TestJWTTokenService_GarbageToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret", time.Hour, "vendor-ledger")

	_, err := svc.Validate("not.a.jwt")
	require.Error(t, err)
}
