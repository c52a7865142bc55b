// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/mail"
	"github.com/taibuivan/caseline/internal/platform/ratelimit"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/users/otp"
	"github.com/taibuivan/caseline/pkg/uuid"
)

// # Contracts & Types

// OTPIssuer is the part of the OTP service the recovery request flow needs.
type OTPIssuer interface {
	Generate(ctx context.Context, userID, email string) (string, error)
	Resend(ctx context.Context, userID, email string) (string, error)
	Check(ctx context.Context, userID, code string) (*otp.Record, error)
}

// AttemptLimiter caps login attempts across replicas.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
	Reset(ctx context.Context, key string) error
}

// Config holds token lifetimes and link settings.
type Config struct {
	Secrets    Secrets
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// LinkTTL bounds password reset and account recovery links.
	LinkTTL time.Duration
	// PublicBaseURL is the web client origin links point to.
	PublicBaseURL string
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, login or
// link issuing must be reviewed by the security team.
type Service struct {
	users         UserRepository
	sessions      session.Store
	otps          OTPIssuer
	tokens        TokenProvider
	mailer        mail.Mailer
	loginAttempts AttemptLimiter
	config        Config
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	users UserRepository,
	sessions session.Store,
	otps OTPIssuer,
	tokens TokenProvider,
	mailer mail.Mailer,
	loginAttempts AttemptLimiter,
	config Config,
) *Service {
	return &Service{
		users:         users,
		sessions:      sessions,
		otps:          otps,
		tokens:        tokens,
		mailer:        mailer,
		loginAttempts: loginAttempts,
		config:        config,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new party.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

/*
Register hashes the password and persists a new account with the user role.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Conflict (email exists, even on a soft-deleted account) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	email := NormalizeEmail(input.Email)

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
	}

	// The unique index is the source of truth; the repository maps it to a Conflict.
	if err := service.users.Create(context, user); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_registered", slog.String("user_id", user.ID))

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	// PreviousSessionID is destroyed so a login never reuses a session id.
	PreviousSessionID string
}

// LoginResult is a freshly established session.
type LoginResult struct {
	SessionID string
	User      *User
}

var errInvalidCredentials = apperr.Authentication("Invalid email or password")

/*
Login validates credentials and creates a session.

Description: Throttled per IP and email. On success it issues an access and a
refresh token, stores the refresh token on the user (revoking whatever was
issued before) and saves a new session holding both plus the user projection.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: New session id and the user
  - error: AuthenticationError, RateLimited or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	email := NormalizeEmail(input.Email)
	attemptKey := input.IPAddress + "|" + email

	result, err := service.loginAttempts.Allow(context, attemptKey)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_throttle_failed: %w", err)
	}
	if !result.Allowed {
		return nil, apperr.RateLimited(result.RetryAfterSeconds())
	}

	// Generic message for unknown and deleted accounts to prevent enumeration.
	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	payload := user.Payload()

	accessToken, err := service.tokens.GenerateToken(payload, service.config.AccessTTL, service.config.Secrets.Access)
	if err != nil {
		return nil, err
	}

	refreshToken, err := service.tokens.GenerateToken(payload, service.config.RefreshTTL, service.config.Secrets.Refresh)
	if err != nil {
		return nil, err
	}

	if err := service.users.UpdateRefreshToken(context, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("auth_service_store_refresh_failed: %w", err)
	}
	user.RefreshToken = refreshToken

	sessionID, err := session.NewID()
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_id_failed: %w", err)
	}

	err = service.sessions.Save(context, sessionID, &session.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.SessionUser(),
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_save_failed: %w", err)
	}

	logger := ctxutil.GetLogger(context)

	if input.PreviousSessionID != "" {
		if err := service.sessions.Destroy(context, input.PreviousSessionID); err != nil {
			logger.WarnContext(context, "previous_session_destroy_failed", slog.Any("error", err))
		}
	}

	if err := service.loginAttempts.Reset(context, attemptKey); err != nil {
		logger.WarnContext(context, "login_attempts_reset_failed", slog.Any("error", err))
	}

	logger.InfoContext(context, "user_logged_in", slog.String("user_id", user.ID))

	return &LoginResult{SessionID: sessionID, User: user}, nil
}

/*
Logout destroys the session and revokes the user's refresh token.

Description: Logging out of an absent session succeeds. A failed destroy is a
BadRequestError, because the session would otherwise stay valid.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: BadRequest on destroy failure, storage errors otherwise
*/
func (service *Service) Logout(context context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	stored, err := service.sessions.Get(context, sessionID)
	if err != nil {
		return fmt.Errorf("auth_service_logout_lookup_failed: %w", err)
	}

	if err := service.sessions.Destroy(context, sessionID); err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "session_destroy_failed", slog.Any("error", err))
		return apperr.BadRequest("Failed to destroy session").Wrap(err)
	}

	if stored != nil && stored.User != nil {
		if err := service.users.UpdateRefreshToken(context, stored.User.ID, ""); err != nil {
			return fmt.Errorf("auth_service_logout_revoke_failed: %w", err)
		}
	}

	return nil
}

// # Password Recovery

/*
ForgotPassword issues a password reset link and mails it.

Description: The link token is signed with the reset secret concatenated with
the current password hash, so it stops verifying as soon as the password
changes and cannot be replayed.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: The reset link
  - error: BadRequest when no active account matches, mail or signing errors
*/
func (service *Service) ForgotPassword(context context.Context, email string) (string, error) {
	user, err := service.users.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", apperr.BadRequest("Account not found")
		}
		return "", err
	}

	token, err := service.tokens.GenerateToken(user.Payload(), service.config.LinkTTL, service.resetSecret(user))
	if err != nil {
		return "", err
	}

	link := service.link("/reset-password/", token)

	err = service.mailer.Send(context, mail.Message{
		To:      user.Email,
		Subject: "Reset your Caseline password",
		Body:    "Use the link below to choose a new password:\n" + link,
	})
	if err != nil {
		return "", fmt.Errorf("auth_service_reset_mail_failed: %w", err)
	}

	return link, nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Reads the subject without trust, loads the user, then verifies the
token against that user's derived secret. Updating the password also clears
the refresh token, which ends every session at its next rotation.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - error: AuthenticationError (invalid link), BadRequest (expired link) or storage errors
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	claimed := service.tokens.DecodeToken(token)
	if claimed == nil || !uuid.Valid(claimed.UID) {
		return apperr.Authentication("Invalid token")
	}

	user, err := service.users.FindByID(context, claimed.UID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Authentication("Invalid token")
		}
		return err
	}

	if _, err := VerifyLinkToken(service.tokens, token, service.resetSecret(user)); err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "password_reset", slog.String("user_id", user.ID))

	return nil
}

func (service *Service) resetSecret(user *User) string {
	return service.config.Secrets.Reset + user.PasswordHash
}

// # Account Recovery Requests

/*
RequestAccountRecovery starts recovery of a soft-deleted account.

Description: Issues a recovery link token carrying {UID, email} and a one-time
code, and mails both.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: The recovery link
  - error: BadRequest ("Account not found", OTP cap reached) or internal errors
*/
func (service *Service) RequestAccountRecovery(context context.Context, email string) (string, error) {
	user, err := service.users.FindDeletedByEmail(context, NormalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", apperr.BadRequest("Account not found")
		}
		return "", err
	}

	token, err := service.tokens.GenerateToken(
		&sec.Payload{UID: user.ID, Email: user.Email},
		service.config.LinkTTL,
		service.config.Secrets.Recovery,
	)
	if err != nil {
		return "", err
	}

	code, err := service.otps.Generate(context, user.ID, user.Email)
	if err != nil {
		return "", err
	}

	link := service.link("/auth/checkpoint/", token)
	if err := service.sendCode(context, user.Email, code, link); err != nil {
		return "", err
	}

	return link, nil
}

/*
Checkpoint checks the code against the link token's subject and returns the
restore link. The code is not consumed; the restore step does that.

Parameters:
  - context: context.Context
  - token: string (recovery link token)
  - code: string

Returns:
  - string: Continuation link to the restore step
  - error: Authentication/BadRequest for the token, BadRequest "Account not found"
    once the account is restored or purged, BadRequest "Invalid OTP"
*/
func (service *Service) Checkpoint(context context.Context, token, code string) (string, error) {
	user, err := service.recoverySubject(context, token)
	if err != nil {
		return "", err
	}

	if _, err := service.otps.Check(context, user.ID, code); err != nil {
		return "", err
	}

	return service.link("/account/restore/", token), nil
}

/*
ResendOTP retires the pending code of the link token's subject and mails a new one.

Parameters:
  - context: context.Context
  - token: string (recovery link token)

Returns:
  - error: Authentication/BadRequest for the token, BadRequest "Account not found",
    OTP cap, mail errors
*/
func (service *Service) ResendOTP(context context.Context, token string) error {
	user, err := service.recoverySubject(context, token)
	if err != nil {
		return err
	}

	code, err := service.otps.Resend(context, user.ID, user.Email)
	if err != nil {
		return err
	}

	return service.sendCode(context, user.Email, code, service.link("/auth/checkpoint/", token))
}

// recoverySubject verifies a recovery link token and returns its account,
// which must still be soft-deleted.
func (service *Service) recoverySubject(context context.Context, token string) (*User, error) {
	payload, err := VerifyLinkToken(service.tokens, token, service.config.Secrets.Recovery)
	if err != nil {
		return nil, err
	}

	user, err := service.users.FindDeletedByEmail(context, NormalizeEmail(payload.Email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.BadRequest("Account not found")
		}
		return nil, err
	}
	if user.ID != payload.UID {
		return nil, apperr.BadRequest("Account not found")
	}

	return user, nil
}

func (service *Service) sendCode(context context.Context, email, code, link string) error {
	err := service.mailer.Send(context, mail.Message{
		To:      email,
		Subject: "Your Caseline verification code",
		Body:    fmt.Sprintf("Your verification code is %s.\nContinue at %s", code, link),
	})
	if err != nil {
		return fmt.Errorf("auth_service_code_mail_failed: %w", err)
	}
	return nil
}

func (service *Service) link(path, token string) string {
	return strings.TrimRight(service.config.PublicBaseURL, "/") + path + token
}

// # Link Tokens

/*
VerifyLinkToken verifies a signed link token (reset or recovery).

Returns:
  - *sec.Payload: The embedded identity
  - error: AuthenticationError "Invalid token" or BadRequestError "Token expired"
*/
func VerifyLinkToken(tokens TokenProvider, token, secret string) (*sec.Payload, error) {
	result := tokens.VerifyToken(token, secret)

	switch {
	case result.Valid && result.Payload.UID != "":
		return result.Payload, nil
	case result.Expired:
		return nil, apperr.BadRequest("Token expired")
	default:
		return nil, apperr.Authentication("Invalid token")
	}
}
