// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/mail"
	"github.com/taibuivan/caseline/internal/platform/ratelimit"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/users/otp"
)

// accountID is a canonical account ID for flows that parse the token subject.
const accountID = "0192f4a1-7b3c-7d2e-9f10-2a3b4c5d6e7f"

var testSecrets = Secrets{
	Access:   "access-secret",
	Refresh:  "refresh-secret",
	Reset:    "reset-secret",
	Recovery: "recovery-secret",
}

// # Users

// memUserRepository is an in-memory UserRepository keyed by id.
type memUserRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemUserRepository(users ...*User) *memUserRepository {
	repo := &memUserRepository{users: make(map[string]*User)}
	for _, user := range users {
		stored := *user
		repo.users[user.ID] = &stored
	}
	return repo
}

func (repo *memUserRepository) find(match func(*User) bool) (*User, error) {
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

func (repo *memUserRepository) get(id string) *User {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return nil
	}
	found := *user
	return &found
}

func (repo *memUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	return repo.find(func(user *User) bool { return user.ID == id && !user.IsDeleted })
}

func (repo *memUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	return repo.find(func(user *User) bool { return user.Email == email && !user.IsDeleted })
}

func (repo *memUserRepository) FindDeletedByEmail(_ context.Context, email string) (*User, error) {
	return repo.find(func(user *User) bool { return user.Email == email && user.IsDeleted })
}

func (repo *memUserRepository) Create(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return apperr.Conflict("Email is already registered")
		}
	}
	stored := *user
	repo.users[user.ID] = &stored
	return nil
}

func (repo *memUserRepository) update(id string, apply func(*User)) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[id]; ok {
		apply(user)
	}
	return nil
}

func (repo *memUserRepository) UpdateRefreshToken(_ context.Context, userID, token string) error {
	return repo.update(userID, func(user *User) { user.RefreshToken = token })
}

func (repo *memUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	return repo.update(userID, func(user *User) {
		user.PasswordHash = newHash
		user.RefreshToken = ""
	})
}

func (repo *memUserRepository) SoftDelete(_ context.Context, userID string, at time.Time) error {
	return repo.update(userID, func(user *User) {
		user.IsDeleted = true
		user.DeletedAt = &at
		user.RefreshToken = ""
	})
}

func (repo *memUserRepository) Restore(_ context.Context, userID string) error {
	return repo.update(userID, func(user *User) {
		user.IsDeleted = false
		user.DeletedAt = nil
	})
}

func (repo *memUserRepository) HardDelete(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.users, userID)
	return nil
}

// lookupFailingUsers fails every ID lookup and counts the attempts.
type lookupFailingUsers struct {
	*memUserRepository
	lookups int
}

func (repo *lookupFailingUsers) FindByID(_ context.Context, _ string) (*User, error) {
	repo.lookups++
	return nil, errStoreDown
}

// # Sessions

// faultyStore wraps a MemoryStore and fails selected operations.
type faultyStore struct {
	*session.MemoryStore
	getErr     error
	saveErr    error
	destroyErr error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: session.NewMemoryStore(time.Hour)}
}

func (store *faultyStore) Get(ctx context.Context, id string) (*session.Session, error) {
	if store.getErr != nil {
		return nil, store.getErr
	}
	return store.MemoryStore.Get(ctx, id)
}

func (store *faultyStore) Save(ctx context.Context, id string, value *session.Session) error {
	if store.saveErr != nil {
		return store.saveErr
	}
	return store.MemoryStore.Save(ctx, id, value)
}

func (store *faultyStore) Destroy(ctx context.Context, id string) error {
	if store.destroyErr != nil {
		return store.destroyErr
	}
	return store.MemoryStore.Destroy(ctx, id)
}

var errStoreDown = errors.New("store: connection refused")

// # OTP, Mail & Limiter

// stubOTP records issued codes and accepts exactly those.
type stubOTP struct {
	mu     sync.Mutex
	issued map[string]string
	err    error
}

func newStubOTP() *stubOTP {
	return &stubOTP{issued: make(map[string]string)}
}

func (stub *stubOTP) Generate(_ context.Context, userID, _ string) (string, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.err != nil {
		return "", stub.err
	}
	code := "K7Q2MX"
	stub.issued[userID] = code
	return code, nil
}

func (stub *stubOTP) Resend(ctx context.Context, userID, email string) (string, error) {
	return stub.Generate(ctx, userID, email)
}

func (stub *stubOTP) Check(_ context.Context, userID, code string) (*otp.Record, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.issued[userID] != code {
		return nil, otp.ErrInvalidCode
	}
	return &otp.Record{UserID: userID}, nil
}

// recordingMailer keeps every message it was asked to send.
type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (mailer *recordingMailer) Send(_ context.Context, message mail.Message) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	mailer.messages = append(mailer.messages, message)
	return nil
}

func (mailer *recordingMailer) last() mail.Message {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.messages) == 0 {
		return mail.Message{}
	}
	return mailer.messages[len(mailer.messages)-1]
}

// countingLimiter allows up to limit attempts per key until Reset.
type countingLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, counts: make(map[string]int)}
}

func (limiter *countingLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if limiter.counts[key] >= limiter.limit {
		return ratelimit.Result{RetryAfter: 30 * time.Second}, nil
	}
	limiter.counts[key]++
	return ratelimit.Result{Allowed: true, Remaining: limiter.limit - limiter.counts[key]}, nil
}

func (limiter *countingLimiter) Reset(_ context.Context, key string) error {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	delete(limiter.counts, key)
	return nil
}

// # Tokens

// signAt signs payload as if issued at issuedAt, so expired tokens can be
// produced without waiting.
func signAt(t *testing.T, payload *sec.Payload, secret string, issuedAt time.Time, ttl time.Duration) string {
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
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func expiredToken(t *testing.T, payload *sec.Payload, secret string) string {
	return signAt(t, payload, secret, time.Now().Add(-2*time.Hour), time.Hour)
}

func freshToken(t *testing.T, payload *sec.Payload, secret string) string {
	return signAt(t, payload, secret, time.Now(), time.Hour)
}

func newTestUser(t *testing.T, id, email, password string, role sec.UserRole) *User {
	t.Helper()
	hash, err := sec.HashPassword(password)
	require.NoError(t, err)
	return &User{
		ID:           id,
		FirstName:    "ada",
		LastName:     "lovelace",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
}
