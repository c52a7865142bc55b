// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Handles assigned cases, hearings and settlements
	RoleMediator UserRole = "mediator"

	// Default role for standard registered users (parties to a case)
	RoleUser UserRole = "user"
)

// # Role Checks

// In reports whether r is one of allowed.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, role := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Known reports whether r is a role the platform issues.
func (r UserRole) Known() bool {
	return r.In(RoleAdmin, RoleMediator, RoleUser)
}
