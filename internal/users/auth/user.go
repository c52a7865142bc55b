// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements identity, login and session management for Caseline.

It owns the user's authentication fields (password hash, stored refresh token,
role, soft-delete state), the session validator that every protected route
runs through, and the link-and-code flows that precede account recovery.

# Architecture

  - Entities: User (auth subset of the account record).
  - Validator: SessionValidator, the access/refresh rotation state machine.
  - Service: Register, Login, Logout, password reset and recovery requests.
  - Repository: UserRepository over PostgreSQL.
*/
package auth

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
)

// # Domain Entities

// User represents a registered party, mediator or administrator.
type User struct {
	ID           string       `json:"id"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	RefreshToken string       `json:"-"` // Last issued refresh token; empty after logout.
	IsDeleted    bool         `json:"isDeleted"`
	DeletedAt    *time.Time   `json:"deletedAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// FullName joins and title-cases the first and last name.
func (u *User) FullName() string {
	// A Caser keeps state and must not be shared between goroutines.
	return cases.Title(language.Und).String(strings.TrimSpace(u.FirstName + " " + u.LastName))
}

// Payload returns the identity embedded in the user's tokens.
func (u *User) Payload() *sec.Payload {
	return &sec.Payload{UID: u.ID, Email: u.Email, Role: string(u.Role)}
}

// SessionUser returns the projection stored on the session.
func (u *User) SessionUser() *session.User {
	return &session.User{
		ID:       u.ID,
		Role:     string(u.Role),
		Email:    u.Email,
		FullName: u.FullName(),
	}
}

// NormalizeEmail lowercases and trims an address before lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldOTP       = "otp"
	FieldToken     = "token"
	FieldUID       = "UID"
	FieldRole      = "role"
	FieldLink      = "link"
	FieldMessage   = "message"
)
