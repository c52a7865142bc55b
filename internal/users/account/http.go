// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"net/http"

	"github.com/taibuivan/caseline/internal/platform/middleware"
	requestutil "github.com/taibuivan/caseline/internal/platform/request"
	"github.com/taibuivan/caseline/internal/platform/respond"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/platform/validate"
	"github.com/taibuivan/caseline/internal/users/auth"
)

// SessionTerminator ends a session and revokes its refresh token.
type SessionTerminator interface {
	Logout(ctx context.Context, sessionID string) error
}

// Handler implements the HTTP layer for account management and recovery.
type Handler struct {
	accountService *Service
	recovery       *RecoveryFlow
	sessions       SessionTerminator
	cookie         session.Cookie
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, recovery *RecoveryFlow, sessions SessionTerminator, cookie session.Cookie) *Handler {
	return &Handler{
		accountService: service,
		recovery:       recovery,
		sessions:       sessions,
		cookie:         cookie,
	}
}

// Routes returns the account rows of the route table.
func (handler *Handler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: http.MethodPut, Pattern: "/account/restore/{token}", Handler: handler.restore, Public: true},
		{Method: http.MethodDelete, Pattern: "/account/logout", Handler: handler.logout},
		{Method: http.MethodGet, Pattern: "/account/me", Handler: handler.getMe},
		{Method: http.MethodDelete, Pattern: "/account", Handler: handler.deleteMe},
		{Method: http.MethodGet, Pattern: "/account/users/{id}", Handler: handler.getUser, Roles: []sec.UserRole{sec.RoleAdmin}},
	}
}

/*
Restore executes the recovery flow for a deleted account.

PUT /api/v1/account/restore/{token}

Request:
  - Body: {otp}

Response:
  - 200: User: The restored account
  - 400: Invalid OTP, expired link, unknown or purged account
  - 401: Invalid link
*/
func (handler *Handler) restore(writer http.ResponseWriter, request *http.Request) {
	code, ok := auth.DecodeOTP(writer, request)
	if !ok {
		return
	}

	user, err := handler.recovery.Restore(request.Context(), requestutil.Param(request, auth.FieldToken), code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
Logout destroys the current session and clears the cookie.

DELETE /api/v1/account/logout

Response:
  - 204: No Content
  - 400: The session could not be destroyed
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.sessions.Logout(request.Context(), requestutil.SessionID(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Clear(writer)
	respond.NoContent(writer)
}

/*
GetMe returns the signed-in account.

GET /api/v1/account/me
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	current, err := requestutil.SessionUser(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), current.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
DeleteMe soft-deletes the signed-in account. It can be restored within the
grace period through the recovery flow.

DELETE /api/v1/account

Response:
  - 204: No Content
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	current, err := requestutil.SessionUser(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Delete(request.Context(), current.ID, requestutil.SessionID(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Clear(writer)
	respond.NoContent(writer)
}

/*
GetUser returns any active account. Administrators only.

GET /api/v1/account/users/{id}
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", userID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
