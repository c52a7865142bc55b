// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session defines the server-side session record and the key/value
store contract it lives in.

A session is keyed by an opaque id carried in a cookie. It links the client
to its current access/refresh token pair and to a denormalized projection of
the user, so protected routes can authorize without a database round trip.

Stores:

  - RedisStore: production store; one JSON value per session with a TTL.
  - MemoryStore: in-process store for tests and single-node development.

Both stores guarantee read-your-writes for a single session id. Nothing is
guaranteed across concurrent requests for the same id: the last Save wins.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/caseline/internal/platform/sec"
)

// idLength is the number of random bytes behind a session id.
const idLength = 32

// ErrMissingAccessToken is returned by Save when a session carries a user
// projection but no access token.
var ErrMissingAccessToken = errors.New("session: user projection requires an access token")

// User is the denormalized identity projection stored on the session.
type User struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// Session is the persisted value shape.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Check enforces the session invariant.
func (s *Session) Check() error {
	if s.User != nil && s.AccessToken == "" {
		return ErrMissingAccessToken
	}
	return nil
}

// Store is the capability set the auth core needs from a session backend.
type Store interface {
	// Get returns the session for id, or (nil, nil) when it does not exist.
	Get(ctx context.Context, id string) (*Session, error)

	// Save creates or replaces the session for id.
	Save(ctx context.Context, id string, value *Session) error

	// Destroy removes the session. Destroying an absent session is not an error.
	Destroy(ctx context.Context, id string) error
}

// NewID returns a fresh, URL-safe session id.
func NewID() (string, error) {
	id, err := sec.GenerateSecureToken(idLength)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return id, nil
}

// defaultTTL bounds sessions when a store is constructed with a zero TTL.
const defaultTTL = 7 * 24 * time.Hour
