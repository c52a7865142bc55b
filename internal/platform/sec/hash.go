// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/caseline/internal/platform/apperr"
)

// # Passwords

// MaxPasswordBytes is the longest input bcrypt accepts. Request validation
// counts characters, so a short multi-byte password can still exceed it.
const MaxPasswordBytes = 72

// PasswordCost is the bcrypt work factor for new hashes.
var PasswordCost = bcrypt.DefaultCost

// ErrPasswordTooLong is returned for passwords bcrypt would reject.
var ErrPasswordTooLong = apperr.ValidationError("Password is too long", apperr.FieldError{
	Field:   "password",
	Message: fmt.Sprintf("Must be at most %d bytes", MaxPasswordBytes),
})

/*
HashPassword hashes a plain-text password with bcrypt.

Returns:
  - string: The encoded hash, safe to store
  - error: ErrPasswordTooLong (400) or an internal bcrypt failure
*/
func HashPassword(plainTextPassword string) (string, error) {
	if len(plainTextPassword) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), PasswordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash reports whether plainTextPassword matches existingHash.
// A malformed hash never matches.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword)) == nil
}
