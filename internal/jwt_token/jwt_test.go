package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trainingcenter/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")
var staffID = "staff-42"
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(staffID, "admin", expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(staffID, "admin", -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	for name, other := range map[string]*JWTService{
		"different key":    NewJWTService("another-key", "test-issuer"),
		"different issuer": NewJWTService("test-signing-key", "someone-else"),
	} {
		t.Run(name, func(t *testing.T) {
			token, err := other.GenerateAccessToken(staffID, "admin", expiresIn)
			require.NoError(t, err)
			_, err = jwtService.ValidateToken(token)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func Test_AdapterMapsClaims(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(staffID, "registrar", expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.StaffID)
	assert.Equal(t, "registrar", claims.Role)
	assert.NotEmpty(t, claims.JTI)
}

func Test_ValidateToken_ClockAndLeeway(t *testing.T) {
	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	signer := NewJWTService("test-signing-key", "test-issuer", WithClock(func() time.Time { return issued }))
	token, err := signer.GenerateAccessToken(staffID, "admin", time.Minute)
	require.NoError(t, err)

	later := issued.Add(90 * time.Second)
	strict := NewJWTService("test-signing-key", "test-issuer", WithClock(func() time.Time { return later }))
	_, err = strict.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))

	tolerant := NewJWTService("test-signing-key", "test-issuer",
		WithClock(func() time.Time { return later }), WithLeeway(time.Minute))
	claims, err := tolerant.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.Subject)
}

func Test_ValidateToken_RequiresRole(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(staffID, "", expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
}
