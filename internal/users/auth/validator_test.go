// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
)

type validatorFixture struct {
	validator *SessionValidator
	store     *faultyStore
	users     *memUserRepository
	user      *User
	payload   *sec.Payload
	ctx       context.Context
}

const fixtureSessionID = "sid-1"

func newValidatorFixture(t *testing.T) *validatorFixture {
	t.Helper()

	user := newTestUser(t, "u-1", "a@b.com", "Secret1!", sec.RoleUser)
	users := newMemUserRepository(user)
	store := newFaultyStore()

	return &validatorFixture{
		validator: NewSessionValidator(store, users, sec.NewTokenService(constants.AuthIssuer), testSecrets, 15*time.Minute),
		store:     store,
		users:     users,
		user:      user,
		payload:   user.Payload(),
		ctx:       ctxutil.WithSessionID(context.Background(), fixtureSessionID),
	}
}

func (f *validatorFixture) save(t *testing.T, value *session.Session) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), fixtureSessionID, value))
}

func assertAppError(t *testing.T, err error, kind, message string) {
	t.Helper()
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	assert.Equal(t, kind, appError.Kind)
	assert.Equal(t, message, appError.Message)
}

/*
TestValidate_ValidAccessTokenDoesNotMutate covers the fast path.
*/
func TestValidate_ValidAccessTokenDoesNotMutate(t *testing.T) {
	f := newValidatorFixture(t)

	access := freshToken(t, f.payload, testSecrets.Access)
	f.save(t, &session.Session{AccessToken: access, RefreshToken: "r", User: f.user.SessionUser()})

	user, err := f.validator.Validate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "Ada Lovelace", user.FullName)

	stored, err := f.store.Get(context.Background(), fixtureSessionID)
	require.NoError(t, err)
	assert.Equal(t, access, stored.AccessToken)
}

/*
TestValidate_RotatesExpiredAccessToken replaces the access token when the
stored refresh token is valid for the same subject.
*/
func TestValidate_RotatesExpiredAccessToken(t *testing.T) {
	f := newValidatorFixture(t)

	refresh := freshToken(t, f.payload, testSecrets.Refresh)
	require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, refresh))

	expired := expiredToken(t, f.payload, testSecrets.Access)
	f.save(t, &session.Session{AccessToken: expired, RefreshToken: refresh, User: f.user.SessionUser()})

	user, err := f.validator.Validate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	stored, err := f.store.Get(context.Background(), fixtureSessionID)
	require.NoError(t, err)
	require.NotEqual(t, expired, stored.AccessToken)

	verification := sec.NewTokenService(constants.AuthIssuer).VerifyToken(stored.AccessToken, testSecrets.Access)
	require.True(t, verification.Valid)
	assert.Equal(t, "u-1", verification.Payload.UID)
}

/*
TestValidate_ExpiredRefreshDestroysSession ends the session for good.
*/
func TestValidate_ExpiredRefreshDestroysSession(t *testing.T) {
	f := newValidatorFixture(t)

	require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, expiredToken(t, f.payload, testSecrets.Refresh)))
	f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access), User: f.user.SessionUser()})

	_, err := f.validator.Validate(f.ctx)
	assertAppError(t, err, apperr.KindAuthentication, "Session expired")

	stored, err := f.store.Get(context.Background(), fixtureSessionID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

/*
TestValidate_Failures walks the rejection branches of the state machine.
*/
func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *validatorFixture) context.Context
		kind    string
		message string
	}{
		{
			name: "no session id on the request",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				return context.Background()
			},
			kind:    apperr.KindAuthentication,
			message: "No session found",
		},
		{
			name: "session id unknown to the store",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				return f.ctx
			},
			kind:    apperr.KindAuthentication,
			message: "No session found",
		},
		{
			name: "store lookup fails",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				f.store.getErr = errStoreDown
				return f.ctx
			},
			kind:    apperr.KindAuthentication,
			message: "No session found",
		},
		{
			name: "session without identity",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				f.save(t, &session.Session{RefreshToken: "r"})
				return f.ctx
			},
			kind:    apperr.KindAuthentication,
			message: "User not authenticated",
		},
		{
			name: "access token signed with another secret",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				f.save(t, &session.Session{AccessToken: freshToken(t, f.payload, "other"), User: f.user.SessionUser()})
				return f.ctx
			},
			kind:    apperr.KindAuthentication,
			message: "Invalid session",
		},
		{
			name: "no refresh token stored for the user",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access), User: f.user.SessionUser()})
				return f.ctx
			},
			kind:    apperr.KindBadRequest,
			message: "Refresh token not found",
		},
		{
			name: "user of the access token is gone",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				ghost := &sec.Payload{UID: "ghost"}
				f.save(t, &session.Session{AccessToken: expiredToken(t, ghost, testSecrets.Access)})
				return f.ctx
			},
			kind:    apperr.KindBadRequest,
			message: "Refresh token not found",
		},
		{
			name: "refresh token issued to another subject",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				other := freshToken(t, &sec.Payload{UID: "u-2"}, testSecrets.Refresh)
				require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, other))
				f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access), User: f.user.SessionUser()})
				return f.ctx
			},
			kind:    apperr.KindAuthentication,
			message: "Invalid session",
		},
		{
			name: "refresh token tampered",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, "not-a-token"))
				f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access), User: f.user.SessionUser()})
				return f.ctx
			},
			kind:    apperr.KindAuthentication,
			message: "Invalid session",
		},
		{
			name: "session destroy fails on expiry",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, expiredToken(t, f.payload, testSecrets.Refresh)))
				f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access), User: f.user.SessionUser()})
				f.store.destroyErr = errStoreDown
				return f.ctx
			},
			kind:    apperr.KindBadRequest,
			message: "Failed to destroy session",
		},
		{
			name: "rotated session cannot be saved",
			setup: func(t *testing.T, f *validatorFixture) context.Context {
				require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, freshToken(t, f.payload, testSecrets.Refresh)))
				f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access), User: f.user.SessionUser()})
				f.store.saveErr = errStoreDown
				return f.ctx
			},
			kind:    apperr.KindBadRequest,
			message: "Failed to refresh token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newValidatorFixture(t)
			ctx := tt.setup(t, f)

			user, err := f.validator.Validate(ctx)
			assert.Nil(t, user)
			assertAppError(t, err, tt.kind, tt.message)
		})
	}
}

/*
TestValidate_RotationFillsMissingProjection stores the user projection when a
session only carried tokens.
*/
func TestValidate_RotationFillsMissingProjection(t *testing.T) {
	f := newValidatorFixture(t)

	require.NoError(t, f.users.UpdateRefreshToken(context.Background(), f.user.ID, freshToken(t, f.payload, testSecrets.Refresh)))
	f.save(t, &session.Session{AccessToken: expiredToken(t, f.payload, testSecrets.Access)})

	user, err := f.validator.Validate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)

	stored, err := f.store.Get(context.Background(), fixtureSessionID)
	require.NoError(t, err)
	require.NotNil(t, stored.User)
	assert.Equal(t, string(sec.RoleUser), stored.User.Role)
}
