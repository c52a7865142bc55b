// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/caseline/internal/platform/apperr"
)

const testSecret = "access-secret"

func samplePayload() *Payload {
	return &Payload{UID: "u-1", Email: "a@b.com", Role: "user"}
}

/*
TestTokenService_Roundtrip signs and verifies a fresh token.
*/
func TestTokenService_Roundtrip(t *testing.T) {
	service := NewTokenService("caseline.test")

	token, err := service.GenerateToken(samplePayload(), time.Minute, testSecret)
	require.NoError(t, err)

	result := service.VerifyToken(token, testSecret)
	assert.True(t, result.Valid)
	assert.False(t, result.Expired)
	require.NotNil(t, result.Payload)
	assert.Equal(t, "u-1", result.Payload.UID)
	assert.Equal(t, "user", result.Payload.Role)
}

/*
TestTokenService_GenerateRequiresSecretAndPayload reports configuration errors.
*/
func TestTokenService_GenerateRequiresSecretAndPayload(t *testing.T) {
	service := NewTokenService("caseline.test")

	_, err := service.GenerateToken(samplePayload(), time.Minute, "")
	require.Error(t, err)
	assert.Equal(t, "CONFIGURATION_ERROR", apperr.As(err).Code)

	_, err = service.GenerateToken(nil, time.Minute, testSecret)
	require.Error(t, err)
	assert.Equal(t, "CONFIGURATION_ERROR", apperr.As(err).Code)
}

/*
TestTokenService_ZeroTTLDefaultsToShortLived applies DefaultTokenTTL.
*/
func TestTokenService_ZeroTTLDefaultsToShortLived(t *testing.T) {
	service := NewTokenService("caseline.test")

	token, err := service.GenerateToken(samplePayload(), 0, testSecret)
	require.NoError(t, err)

	claims := &tokenClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, DefaultTokenTTL, lifetime)
}

/*
TestTokenService_VerifyOutcomes covers every branch of the verification contract.
*/
func TestTokenService_VerifyOutcomes(t *testing.T) {
	service := NewTokenService("caseline.test")

	valid, err := service.GenerateToken(samplePayload(), time.Minute, testSecret)
	require.NoError(t, err)

	past := NewTokenService("caseline.test")
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := past.GenerateToken(samplePayload(), time.Minute, testSecret)
	require.NoError(t, err)

	otherIssuer, err := NewTokenService("someone.else").GenerateToken(samplePayload(), time.Minute, testSecret)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		secret     string
		valid      bool
		expired    bool
		hasPayload bool
	}{
		{"valid", valid, testSecret, true, false, true},
		{"expired_keeps_payload", expired, testSecret, false, true, true},
		{"wrong_secret", valid, "other-secret", false, false, false},
		{"expired_wrong_secret", expired, "other-secret", false, false, false},
		{"foreign_issuer", otherIssuer, testSecret, false, false, false},
		{"malformed", "not.a.token", testSecret, false, false, false},
		{"missing", "", testSecret, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.VerifyToken(tt.token, tt.secret)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.expired, result.Expired)
			assert.Equal(t, tt.hasPayload, result.Payload != nil)
		})
	}
}

/*
TestTokenService_DecodeToken reads payloads without verification.
*/
func TestTokenService_DecodeToken(t *testing.T) {
	service := NewTokenService("caseline.test")

	token, err := service.GenerateToken(samplePayload(), time.Minute, testSecret)
	require.NoError(t, err)

	payload := service.DecodeToken(token)
	require.NotNil(t, payload)
	assert.Equal(t, "a@b.com", payload.Email)

	assert.Nil(t, service.DecodeToken("garbage"))
}
