// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/users/auth"
)

// # Service Layer

// Service handles the signed-in user's own account.
type Service struct {
	users    auth.UserRepository
	sessions session.Store
	now      func() time.Time
}

// NewService constructs a new [Service].
func NewService(users auth.UserRepository, sessions session.Store) *Service {
	return &Service{users: users, sessions: sessions, now: time.Now}
}

/*
GetUser retrieves an active account.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated account
  - error: NotFound or execution failures
*/
func (service *Service) GetUser(context context.Context, userID string) (*auth.User, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("account_service_get_user_failed: %w", err)
	}
	return user, nil
}

/*
Delete soft-deletes the caller's account and ends the current session.

Description: The account stays recoverable for the grace period. The stored
refresh token is cleared with the delete, so other sessions stop rotating.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: BadRequest if the session cannot be destroyed, storage errors
*/
func (service *Service) Delete(context context.Context, userID, sessionID string) error {
	if err := service.users.SoftDelete(context, userID, service.now()); err != nil {
		return fmt.Errorf("account_service_delete_failed: %w", err)
	}

	logger := ctxutil.GetLogger(context)
	logger.InfoContext(context, "account_soft_deleted", slog.String("user_id", userID))

	if sessionID == "" {
		return nil
	}

	if err := service.sessions.Destroy(context, sessionID); err != nil {
		logger.ErrorContext(context, "session_destroy_failed", slog.Any("error", err))
		return apperr.BadRequest("Failed to destroy session").Wrap(err)
	}

	return nil
}
