package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	auth := NewAuthService("secret")
	token, err := auth.IssueToken(12, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 12, claims.CandidateID)
	assert.Equal(t, "12", claims.Subject)
	assert.Equal(t, "interview-backend", claims.Issuer)
}

func TestValidateRejectsExpired(t *testing.T) {
	auth := NewAuthService("secret")
	token, err := auth.IssueToken(12, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	auth := NewAuthService("secret")

	foreign, err := NewAuthService("other").IssueToken(12, time.Hour)
	require.NoError(t, err)
	_, err = auth.ValidateToken(foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	noCandidate, err := auth.IssueToken(0, time.Hour)
	require.NoError(t, err)
	_, err = auth.ValidateToken(noCandidate)
	assert.ErrorIs(t, err, ErrNotCandidate)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "interview-backend"},
		TokenType:        TokenTypeCandidate,
		CandidateID:      12,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(unsigned)
	assert.Error(t, err)
}
