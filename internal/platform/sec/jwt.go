// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the TokenProvider interfaces of each feature.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/caseline/internal/platform/apperr"
)

// DefaultTokenTTL is used when a caller passes a zero TTL.
const DefaultTokenTTL = 15 * time.Minute

// Payload is the caller data embedded in a token under the "data" claim.
//
// The token layer never interprets it; callers put identity fields here.
type Payload struct {
	UID   string `json:"UID"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// tokenClaims is the signed envelope {data, exp, iat, iss, sub}.
type tokenClaims struct {
	jwt.RegisteredClaims
	Data *Payload `json:"data"`
}

// Verification is the outcome of [TokenService.VerifyToken].
//
// Payload is set for valid tokens and for correctly signed but expired ones.
type Verification struct {
	Payload *Payload
	Expired bool
	Valid   bool
}

// TokenService signs and verifies HS256 tokens. The secret is chosen per
// call so access, refresh, reset and recovery tokens never share a key.
type TokenService struct {
	issuer string
	now    func() time.Time
}

// NewTokenService creates a new TokenService stamping issuer on every token.
func NewTokenService(issuer string) *TokenService {
	return &TokenService{issuer: issuer, now: time.Now}
}

// GenerateToken signs payload with secret for timeToLive.
func (service *TokenService) GenerateToken(payload *Payload, timeToLive time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", apperr.Configuration("Token secret is not configured")
	}
	if payload == nil {
		return "", apperr.Configuration("Token payload is missing")
	}
	if timeToLive <= 0 {
		timeToLive = DefaultTokenTTL
	}

	currentTime := service.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Data: payload,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks signature, issuer and expiry. It never fails; the
// result flags describe what was found.
func (service *TokenService) VerifyToken(tokenString, secret string) Verification {
	if tokenString == "" || secret == "" {
		return Verification{}
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	// jwt/v5 checks the signature before the claims, so an expiry error
	// still carries trusted claims.
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.Data != nil && claims.Issuer == service.issuer {
			return Verification{Payload: claims.Data, Expired: true}
		}
		return Verification{}
	}

	if !token.Valid || claims.Data == nil {
		return Verification{}
	}

	return Verification{Payload: claims.Data, Valid: true}
}

// DecodeToken reads the payload without verifying anything. It must not be
// used for authorization decisions.
func (service *TokenService) DecodeToken(tokenString string) *Payload {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims.Data
}
