// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages an authenticated user's own account and the recovery
of soft-deleted accounts.

# Recovery

A deleted account moves through a small state machine:

	Deleted -> token invalid or expired -> fail
	Deleted -> grace period elapsed     -> HardDeleted, fail
	Deleted -> code invalid             -> fail
	Deleted -> code valid               -> Restored

The hard delete happens on a failure path and cannot be undone, so it is
always logged at warn level.
*/
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/users/auth"
	"github.com/taibuivan/caseline/internal/users/otp"
)

// # Contracts

// CodeVerifier consumes a one-time code.
type CodeVerifier interface {
	Verify(ctx context.Context, userID, code string) (*otp.Record, error)
}

// # Recovery Flow

// RecoveryFlow restores soft-deleted accounts within the grace period.
type RecoveryFlow struct {
	users  auth.UserRepository
	codes  CodeVerifier
	tokens auth.TokenProvider
	secret string
	grace  time.Duration
	now    func() time.Time
}

// NewRecoveryFlow constructs a [RecoveryFlow] verifying tokens signed with secret.
func NewRecoveryFlow(users auth.UserRepository, codes CodeVerifier, tokens auth.TokenProvider, secret string) *RecoveryFlow {
	return &RecoveryFlow{
		users:  users,
		codes:  codes,
		tokens: tokens,
		secret: secret,
		grace:  constants.RecoveryGracePeriod,
		now:    time.Now,
	}
}

var errAccountNotFound = apperr.BadRequest("Account not found")

/*
Restore brings a soft-deleted account back.

Description: Verifies the recovery token, loads the deleted account it names,
enforces the grace period and consumes the one-time code.

Parameters:
  - context: context.Context
  - token: string (recovery link token)
  - code: string (one-time code)

Returns:
  - *auth.User: The restored account
  - error: AuthenticationError (invalid token), BadRequestError (expired
    token, unknown account, grace elapsed, invalid code)
*/
func (flow *RecoveryFlow) Restore(context context.Context, token, code string) (*auth.User, error) {
	logger := ctxutil.GetLogger(context)

	// 1. Restore token
	payload, err := auth.VerifyLinkToken(flow.tokens, token, flow.secret)
	if err != nil {
		return nil, err
	}

	// 2. Deleted account named by the token
	user, err := flow.users.FindDeletedByEmail(context, auth.NormalizeEmail(payload.Email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, errAccountNotFound
		}
		return nil, err
	}
	if user.ID != payload.UID {
		return nil, errAccountNotFound
	}

	// 3. Grace period
	if user.DeletedAt == nil || flow.now().Sub(*user.DeletedAt) > flow.grace {
		if err := flow.users.HardDelete(context, user.ID); err != nil {
			return nil, fmt.Errorf("account_recovery_hard_delete_failed: %w", err)
		}
		logger.WarnContext(context, "account_hard_deleted",
			slog.String("user_id", user.ID),
			slog.Any("deleted_at", user.DeletedAt),
		)
		return nil, apperr.BadRequest("Account is already deleted")
	}

	// 4. One-time code, consumed
	if _, err := flow.codes.Verify(context, user.ID, code); err != nil {
		return nil, err
	}

	// 5. Restore
	if err := flow.users.Restore(context, user.ID); err != nil {
		return nil, fmt.Errorf("account_recovery_restore_failed: %w", err)
	}

	user.IsDeleted = false
	user.DeletedAt = nil

	logger.InfoContext(context, "account_restored", slog.String("user_id", user.ID))

	return user, nil
}
