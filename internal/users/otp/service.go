// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/ratelimit"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/pkg/uuid"
)

// Client-facing failures.
var (
	ErrInvalidCode     = apperr.BadRequest("Invalid OTP")
	ErrTooManyRequests = apperr.BadRequest("Too many OTP requests, please try again later")
	ErrTooManyAttempts = apperr.BadRequest("Too many OTP attempts, please try again later")
	errEmailRequired   = apperr.BadRequest("Email is required")
	errUserIDRequired  = apperr.BadRequest("User is required")
)

// AttemptLimiter caps verification attempts per user across replicas.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
	Reset(ctx context.Context, key string) error
}

// Config holds the protocol constants.
type Config struct {
	// MaxPerWindow is the number of codes a user may be issued per Window.
	MaxPerWindow int
	Window       time.Duration
	// TTL is how long an issued code stays valid.
	TTL        time.Duration
	CodeLength int
}

// Service issues and verifies one-time codes.
type Service struct {
	repository Repository
	attempts   AttemptLimiter
	config     Config
	now        func() time.Time
}

// NewService constructs a new [Service].
func NewService(repository Repository, attempts AttemptLimiter, config Config) *Service {
	if config.CodeLength <= 0 {
		config.CodeLength = constants.OTPLength
	}
	return &Service{
		repository: repository,
		attempts:   attempts,
		config:     config,
		now:        time.Now,
	}
}

// # Issuing

/*
Generate issues a new code for userID.

Description: Rejects the request when the user already received MaxPerWindow
codes inside the window. The check is a count query, so a concurrent burst can
overshoot the cap by a few records.

Parameters:
  - context: context.Context
  - userID: string
  - email: string (delivery address; must be present)

Returns:
  - string: The plain code, to be delivered out of band
  - error: BadRequest when capped or incomplete, storage errors otherwise
*/
func (service *Service) Generate(context context.Context, userID, email string) (string, error) {
	code, _, err := service.issue(context, userID, email)
	return code, err
}

/*
Resend issues a new code for userID and retires every other pending one.

Description: Older codes are retired only once the new code is stored, so a
capped resend leaves the current code usable. Retired codes still count
towards the generation window, so resending never bypasses the cap.
*/
func (service *Service) Resend(context context.Context, userID, email string) (string, error) {
	code, record, err := service.issue(context, userID, email)
	if err != nil {
		return "", err
	}

	if err := service.repository.InvalidateOthers(context, userID, record.ID); err != nil {
		return "", fmt.Errorf("otp_service_resend_failed: %w", err)
	}

	return code, nil
}

func (service *Service) issue(context context.Context, userID, email string) (string, *Record, error) {
	if strings.TrimSpace(email) == "" {
		return "", nil, errEmailRequired
	}
	if userID == "" {
		return "", nil, errUserIDRequired
	}

	now := service.now()

	count, err := service.repository.CountSince(context, userID, now.Add(-service.config.Window))
	if err != nil {
		return "", nil, fmt.Errorf("otp_service_count_failed: %w", err)
	}
	if count >= service.config.MaxPerWindow {
		return "", nil, ErrTooManyRequests
	}

	code, err := sec.GenerateCode(service.config.CodeLength)
	if err != nil {
		return "", nil, fmt.Errorf("otp_service_generate_failed: %w", err)
	}

	record := &Record{
		ID:        uuid.New(),
		UserID:    userID,
		CodeHash:  sec.HashCode(code),
		CreatedAt: now,
		ExpiresAt: now.Add(service.config.TTL),
	}
	if err := service.repository.Create(context, record); err != nil {
		return "", nil, fmt.Errorf("otp_service_create_failed: %w", err)
	}

	return code, record, nil
}

// # Verification

/*
Verify consumes code for userID.

Description: Checks the attempt budget, locates the matching record, re-checks
it, then marks it used with a compare-and-set. A code therefore succeeds at
most once, even under concurrent submissions. All other pending codes of the
user are retired on success.

Returns:
  - *Record: The consumed record
  - error: BadRequest ("Invalid OTP" or attempts exhausted), storage errors otherwise
*/
func (service *Service) Verify(context context.Context, userID, code string) (*Record, error) {
	record, err := service.lookup(context, userID, code)
	if err != nil {
		return nil, err
	}

	consumed, err := service.repository.MarkUsed(context, record.ID)
	if err != nil {
		return nil, fmt.Errorf("otp_service_mark_used_failed: %w", err)
	}
	if !consumed {
		return nil, ErrInvalidCode
	}
	record.IsUsed = true

	if err := service.repository.InvalidateOthers(context, userID, record.ID); err != nil {
		return nil, fmt.Errorf("otp_service_invalidate_failed: %w", err)
	}

	if err := service.attempts.Reset(context, userID); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "otp_attempts_reset_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	return record, nil
}

// Check validates code like [Service.Verify] without consuming it. It still
// spends an attempt.
func (service *Service) Check(context context.Context, userID, code string) (*Record, error) {
	return service.lookup(context, userID, code)
}

func (service *Service) lookup(context context.Context, userID, code string) (*Record, error) {
	if userID == "" || code == "" {
		return nil, ErrInvalidCode
	}

	result, err := service.attempts.Allow(context, userID)
	if err != nil {
		return nil, fmt.Errorf("otp_service_attempts_failed: %w", err)
	}
	if !result.Allowed {
		return nil, ErrTooManyAttempts
	}

	now := service.now()
	code = strings.ToUpper(code)
	record, err := service.repository.FindActive(context, userID, sec.HashCode(code), now)
	if err != nil {
		return nil, fmt.Errorf("otp_service_lookup_failed: %w", err)
	}

	// The query already filters on these, but the row may have changed since.
	if record == nil || !record.Actionable(now) || !sec.CodeEqual(code, record.CodeHash) {
		return nil, ErrInvalidCode
	}

	return record, nil
}

// # Maintenance

/*
PurgeExpired deletes records that can no longer be verified and no longer
count towards the generation window.

Returns:
  - int64: Number of deleted records
  - error: Storage errors
*/
func (service *Service) PurgeExpired(context context.Context) (int64, error) {
	retention := service.config.Window
	if service.config.TTL > retention {
		retention = service.config.TTL
	}

	deleted, err := service.repository.PurgeBefore(context, service.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("otp_service_purge_failed: %w", err)
	}

	return deleted, nil
}

// RunPurge calls PurgeExpired every interval until context is cancelled.
func (service *Service) RunPurge(context context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := service.PurgeExpired(context)
			if err != nil {
				logger.Error("otp_purge_failed", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				logger.Info("otp_purged", slog.Int64("deleted", deleted))
			}
		case <-context.Done():
			return
		}
	}
}
