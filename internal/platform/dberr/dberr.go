// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/caseline/internal/platform/apperr"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsNotFound reports whether err means the queried row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == uniqueViolation
}

// Wrap inspects a database error and classifies it.
//
// A unique violation becomes a client-safe Conflict carrying conflictMessage.
// Everything else is wrapped with action for server-side logging and left for
// respond.Error to turn into a 500.
func Wrap(err error, action, conflictMessage string) error {
	if err == nil {
		return nil
	}

	if IsUniqueViolation(err) && conflictMessage != "" {
		return apperr.Conflict(conflictMessage).Wrap(err)
	}

	return fmt.Errorf("%s: %w", action, err)
}
