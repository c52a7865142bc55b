// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/users/auth"
	"github.com/taibuivan/caseline/internal/users/otp"
)

const recoverySecret = "recovery-secret"

// # Fakes

// memUsers is an in-memory auth.UserRepository that records hard deletes.
type memUsers struct {
	mu          sync.Mutex
	users       map[string]*auth.User
	hardDeleted []string
}

func newMemUsers(users ...*auth.User) *memUsers {
	repo := &memUsers{users: make(map[string]*auth.User)}
	for _, user := range users {
		stored := *user
		repo.users[user.ID] = &stored
	}
	return repo
}

func (repo *memUsers) find(match func(*auth.User) bool) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if match(user) {
			found := *user
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	return repo.find(func(user *auth.User) bool { return user.ID == id && !user.IsDeleted })
}

func (repo *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return repo.find(func(user *auth.User) bool { return user.Email == email && !user.IsDeleted })
}

func (repo *memUsers) FindDeletedByEmail(_ context.Context, email string) (*auth.User, error) {
	return repo.find(func(user *auth.User) bool { return user.Email == email && user.IsDeleted })
}

func (repo *memUsers) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored := *user
	repo.users[user.ID] = &stored
	return nil
}

func (repo *memUsers) UpdateRefreshToken(context.Context, string, string) error { return nil }

func (repo *memUsers) UpdatePassword(context.Context, string, string) error { return nil }

func (repo *memUsers) SoftDelete(_ context.Context, userID string, at time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.IsDeleted = true
		user.DeletedAt = &at
		user.RefreshToken = ""
	}
	return nil
}

func (repo *memUsers) Restore(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.IsDeleted = false
		user.DeletedAt = nil
	}
	return nil
}

func (repo *memUsers) HardDelete(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.users, userID)
	repo.hardDeleted = append(repo.hardDeleted, userID)
	return nil
}

func (repo *memUsers) get(id string) *auth.User {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[id]; ok {
		found := *user
		return &found
	}
	return nil
}

// singleUseCodes accepts one code per user exactly once.
type singleUseCodes struct {
	mu    sync.Mutex
	codes map[string]string
	calls int
}

func (codes *singleUseCodes) Verify(_ context.Context, userID, code string) (*otp.Record, error) {
	codes.mu.Lock()
	defer codes.mu.Unlock()
	codes.calls++
	if expected, ok := codes.codes[userID]; !ok || expected != code {
		return nil, otp.ErrInvalidCode
	}
	delete(codes.codes, userID)
	return &otp.Record{UserID: userID, IsUsed: true}, nil
}

// # Helpers

var recoveryNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func deletedUser(id, email string, deletedAt time.Time) *auth.User {
	return &auth.User{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Role:      sec.RoleUser,
		IsDeleted: true,
		DeletedAt: &deletedAt,
	}
}

func recoveryToken(t *testing.T, payload *sec.Payload, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	claims := struct {
		jwt.RegisteredClaims
		Data *sec.Payload `json:"data"`
	}{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UID,
			Issuer:    constants.AuthIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Data: payload,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(recoverySecret))
	require.NoError(t, err)
	return token
}

func newFlow(users *memUsers, codes *singleUseCodes) *RecoveryFlow {
	flow := NewRecoveryFlow(users, codes, sec.NewTokenService(constants.AuthIssuer), recoverySecret)
	flow.now = func() time.Time { return recoveryNow }
	return flow
}

// # Tests

/*
TestRestore_WithinGracePeriod restores the account and consumes the code.
*/
func TestRestore_WithinGracePeriod(t *testing.T) {
	users := newMemUsers(deletedUser("u-1", "a@b.com", recoveryNow.Add(-2*24*time.Hour)))
	codes := &singleUseCodes{codes: map[string]string{"u-1": "K7Q2MX"}}
	flow := newFlow(users, codes)

	token := recoveryToken(t, &sec.Payload{UID: "u-1", Email: "a@b.com"}, time.Now(), time.Hour)

	user, err := flow.Restore(context.Background(), token, "K7Q2MX")
	require.NoError(t, err)
	assert.False(t, user.IsDeleted)
	assert.Nil(t, user.DeletedAt)

	stored := users.get("u-1")
	require.NotNil(t, stored)
	assert.False(t, stored.IsDeleted)

	// The account is active again, so a replay finds nothing to restore.
	_, err = flow.Restore(context.Background(), token, "K7Q2MX")
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

/*
TestRestore_GraceElapsedHardDeletes purges an account deleted 8 days ago.
*/
func TestRestore_GraceElapsedHardDeletes(t *testing.T) {
	users := newMemUsers(deletedUser("u-1", "a@b.com", recoveryNow.Add(-8*24*time.Hour)))
	codes := &singleUseCodes{codes: map[string]string{"u-1": "K7Q2MX"}}
	flow := newFlow(users, codes)

	token := recoveryToken(t, &sec.Payload{UID: "u-1", Email: "a@b.com"}, time.Now(), time.Hour)

	_, err := flow.Restore(context.Background(), token, "K7Q2MX")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.KindBadRequest, appError.Kind)
	assert.Equal(t, "Account is already deleted", appError.Message)

	assert.Equal(t, []string{"u-1"}, users.hardDeleted)
	assert.Nil(t, users.get("u-1"))
	assert.Zero(t, codes.calls, "the code must not be consumed for a purged account")
}

/*
TestRestore_Rejections covers the failing transitions before the restore.
*/
func TestRestore_Rejections(t *testing.T) {
	valid := func(t *testing.T, uid, email string) string {
		return recoveryToken(t, &sec.Payload{UID: uid, Email: email}, time.Now(), time.Hour)
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		code    string
		kind    string
		message string
	}{
		{
			name:    "tampered token",
			token:   func(t *testing.T) string { return "not-a-token" },
			code:    "K7Q2MX",
			kind:    apperr.KindAuthentication,
			message: "Invalid token",
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				return recoveryToken(t, &sec.Payload{UID: "u-1", Email: "a@b.com"}, time.Now().Add(-2*time.Hour), time.Hour)
			},
			code:    "K7Q2MX",
			kind:    apperr.KindBadRequest,
			message: "Token expired",
		},
		{
			name:    "no deleted account for the email",
			token:   func(t *testing.T) string { return valid(t, "u-9", "nobody@b.com") },
			code:    "K7Q2MX",
			kind:    apperr.KindBadRequest,
			message: "Account not found",
		},
		{
			name:    "token subject differs from the account",
			token:   func(t *testing.T) string { return valid(t, "u-2", "a@b.com") },
			code:    "K7Q2MX",
			kind:    apperr.KindBadRequest,
			message: "Account not found",
		},
		{
			name:    "wrong code",
			token:   func(t *testing.T) string { return valid(t, "u-1", "a@b.com") },
			code:    "AAAAAA",
			kind:    apperr.KindBadRequest,
			message: "Invalid OTP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMemUsers(deletedUser("u-1", "a@b.com", recoveryNow.Add(-time.Hour)))
			flow := newFlow(users, &singleUseCodes{codes: map[string]string{"u-1": "K7Q2MX"}})

			_, err := flow.Restore(context.Background(), tt.token(t), tt.code)

			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, tt.kind, appError.Kind)
			assert.Equal(t, tt.message, appError.Message)
			assert.True(t, users.get("u-1").IsDeleted)
			assert.Empty(t, users.hardDeleted)
		})
	}
}
