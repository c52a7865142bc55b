// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
)

// # Contracts

// TokenProvider signs and verifies the platform's tokens.
type TokenProvider interface {
	GenerateToken(payload *sec.Payload, timeToLive time.Duration, secret string) (string, error)
	VerifyToken(token, secret string) sec.Verification
	DecodeToken(token string) *sec.Payload
}

// UserFinder is the part of [UserRepository] the validator reads.
type UserFinder interface {
	FindByID(context context.Context, id string) (*User, error)
}

// Secrets holds one signing key per token purpose.
type Secrets struct {
	Access   string
	Refresh  string
	Reset    string
	Recovery string
}

// # Session Validator

// SessionValidator authenticates the session attached to a request and
// rotates its access token when it has expired.
//
// # Concurrency
//
// Rotation is not serialized. Two requests that both see an expired access
// token both mint a new one and both save; the last save wins. Either token is
// valid, so the loser only wastes a signature.
type SessionValidator struct {
	sessions  session.Store
	users     UserFinder
	tokens    TokenProvider
	secrets   Secrets
	accessTTL time.Duration
}

// NewSessionValidator constructs a new [SessionValidator].
func NewSessionValidator(sessions session.Store, users UserFinder, tokens TokenProvider, secrets Secrets, accessTTL time.Duration) *SessionValidator {
	return &SessionValidator{
		sessions:  sessions,
		users:     users,
		tokens:    tokens,
		secrets:   secrets,
		accessTTL: accessTTL,
	}
}

/*
Validate runs the session state machine for the request behind ctx.

Description:
 1. No session id on the request: AuthenticationError "No session found".
 2. Store lookup fails or finds nothing: AuthenticationError. Store errors are
    logged and never retried.
 3. Neither user nor access token: AuthenticationError "User not authenticated".
 4. Access token valid: done, nothing is written.
 5. Access token expired: load the user by its subject. A missing user or
    stored refresh token is a BadRequestError.
 6. Refresh token expired: destroy the session and fail with
    AuthenticationError "Session expired". A failed destroy is a BadRequestError.
 7. Refresh token valid with the same subject: mint and save a new access
    token. A failed save is BadRequestError "Failed to refresh token".
 8. Anything else: AuthenticationError.

Returns:
  - *session.User: The session's user projection
  - error: *apperr.AppError as described above
*/
func (validator *SessionValidator) Validate(ctx context.Context) (*session.User, error) {
	logger := ctxutil.GetLogger(ctx)

	// 1. Session attached to the request
	sessionID, ok := ctxutil.GetSessionID(ctx)
	if !ok {
		return nil, apperr.Authentication("No session found")
	}

	// 2. Session present in the store
	stored, err := validator.sessions.Get(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "session_store_get_failed", slog.Any("error", err))
		return nil, apperr.Authentication("No session found").Wrap(err)
	}
	if stored == nil {
		return nil, apperr.Authentication("No session found")
	}

	// 3. Session carries an identity
	if stored.User == nil && stored.AccessToken == "" {
		return nil, apperr.Authentication("User not authenticated")
	}

	// 4. Access token still valid
	access := validator.tokens.VerifyToken(stored.AccessToken, validator.secrets.Access)
	if access.Valid {
		return sessionUser(stored, access.Payload), nil
	}
	if !access.Expired {
		return nil, apperr.Authentication("Invalid session")
	}

	// 5. Server-side refresh token of the access token's subject
	user, err := validator.users.FindByID(ctx, access.Payload.UID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.BadRequest("Refresh token not found")
		}
		return nil, err
	}
	if user.RefreshToken == "" {
		return nil, apperr.BadRequest("Refresh token not found")
	}

	refresh := validator.tokens.VerifyToken(user.RefreshToken, validator.secrets.Refresh)

	// 6. Refresh token expired: the session is over
	if refresh.Expired {
		if err := validator.sessions.Destroy(ctx, sessionID); err != nil {
			logger.ErrorContext(ctx, "session_destroy_failed", slog.Any("error", err))
			return nil, apperr.BadRequest("Failed to destroy session").Wrap(err)
		}
		logger.InfoContext(ctx, "session_expired", slog.String("user_id", user.ID))
		return nil, apperr.Authentication("Session expired")
	}

	// 7. Refresh token valid and issued to the same subject, else step 8
	if !refresh.Valid || refresh.Payload.UID != access.Payload.UID {
		return nil, apperr.Authentication("Invalid session")
	}

	// Rotate the access token
	accessToken, err := validator.tokens.GenerateToken(refresh.Payload, validator.accessTTL, validator.secrets.Access)
	if err != nil {
		return nil, err
	}

	stored.AccessToken = accessToken
	if stored.User == nil {
		stored.User = user.SessionUser()
	}

	if err := validator.sessions.Save(ctx, sessionID, stored); err != nil {
		logger.ErrorContext(ctx, "session_save_failed", slog.Any("error", err))
		return nil, apperr.BadRequest("Failed to refresh token").Wrap(err)
	}

	logger.DebugContext(ctx, "session_rotated", slog.String("user_id", user.ID))

	return stored.User, nil
}

// sessionUser prefers the stored projection and falls back to the token identity.
func sessionUser(stored *session.Session, payload *sec.Payload) *session.User {
	if stored.User != nil {
		return stored.User
	}
	return &session.User{ID: payload.UID, Role: payload.Role, Email: payload.Email}
}
