// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/respond"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
)

// SessionValidator defines the interface needed to authenticate a request.
//
// # Why an interface?
//
// Defining SessionValidator here decouples the middleware from the `auth`
// service implementation, allowing us to inject fakes during unit testing.
type SessionValidator interface {
	// Validate authenticates the session referenced by ctx, refreshing the
	// access token when needed, and returns the session user.
	Validate(ctx context.Context) (*session.User, error)
}

// Route is one row of the authorization table.
//
// Every endpoint is declared exactly once with its access policy next to it,
// so reading the table answers "who may call this?" without tracing router
// groups.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc

	// Public routes skip session validation entirely.
	Public bool

	// Roles restricts a protected route to the listed roles. Empty means any
	// authenticated user.
	Roles []sec.UserRole
}

// Mount registers every route on router wrapped in its guard.
//
// It panics on a malformed table, matching how chi reports routing mistakes
// at startup.
func Mount(router chi.Router, validator SessionValidator, routes []Route) {
	seen := make(map[string]bool, len(routes))

	for _, route := range routes {
		key := route.Method + " " + route.Pattern
		switch {
		case route.Handler == nil:
			panic(fmt.Sprintf("middleware: route %s has no handler", key))
		case route.Public && len(route.Roles) > 0:
			panic(fmt.Sprintf("middleware: public route %s cannot require roles", key))
		case seen[key]:
			panic(fmt.Sprintf("middleware: route %s declared twice", key))
		}
		for _, role := range route.Roles {
			if !role.Known() {
				panic(fmt.Sprintf("middleware: route %s requires unknown role %q", key, role))
			}
		}
		seen[key] = true

		var handler http.Handler = route.Handler
		if !route.Public {
			if len(route.Roles) > 0 {
				handler = RequireRoles(route.Roles...)(handler)
			}
			handler = Authenticate(validator)(handler)
		}

		router.Method(route.Method, route.Pattern, handler)
	}
}

// LoadSession copies the session id from the cookie into the request context.
// It never rejects a request; protected routes do that in [Authenticate].
func LoadSession(cookie session.Cookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if id := cookie.Read(request); id != "" {
				request = request.WithContext(ctxutil.WithSessionID(request.Context(), id))
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// Authenticate validates the session and attaches the session user.
//
// # Flow
//  1. Run the validator against the request context.
//  2. On failure, write the error (AuthenticationError renders as 401).
//  3. On success, inject the [*session.User] and enrich the request logger.
func Authenticate(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			user, err := validator.Validate(ctx)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			if user != nil {
				ctx = ctxutil.WithSessionUser(ctx, user)
				ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", user.ID)))
			}

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireRoles blocks requests whose session user does not hold one of roles.
//
// # Usage
//
// Must run AFTER [Authenticate]; [Mount] composes them in that order.
//
// # Flow
//  1. Missing user: 401 Unauthorized "Authentication required".
//  2. Role outside the set: 403 Forbidden "Role not allowed".
func RequireRoles(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user := ctxutil.GetSessionUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if user == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !sec.UserRole(user.Role).In(roles...) {
				respond.Error(writer, request, apperr.Forbidden("Role not allowed"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
