// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/database/schema"
	"github.com/taibuivan/caseline/internal/platform/dberr"
	"github.com/taibuivan/caseline/internal/platform/postgres"
)

// userColumns is the projection every lookup scans with [scanUser].
var userColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	db  postgres.DBTX
	now func() time.Time
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, now: time.Now}
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.RefreshToken,
		&user.IsDeleted,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (repository *PostgresUserRepository) findOne(context context.Context, action, query string, argument string) (*User, error) {
	user, err := scanUser(repository.db.QueryRow(context, query, argument))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", action, err)
	}
	return user, nil
}

/*
FindByID retrieves an active user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users.account
		WHERE id = $1 AND isdeleted = FALSE`

	return repository.findOne(context, "find_by_id", query, id)
}

/*
FindByEmail retrieves an active user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users.account
		WHERE email = $1 AND isdeleted = FALSE`

	return repository.findOne(context, "find_by_email", query, email)
}

/*
FindDeletedByEmail retrieves a soft-deleted user record for recovery.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity with DeletedAt set
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindDeletedByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users.account
		WHERE email = $1 AND isdeleted = TRUE`

	return repository.findOne(context, "find_deleted_by_email", query, email)
}

/*
Create persists a new user record into the users.account table.

Description: Initializes timestamps when absent. A duplicate email, including
one held by a soft-deleted account, is reported as a Conflict.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, firstname, lastname, email, passwordhash, role, refreshtoken, isdeleted, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := repository.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.db.Exec(context, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.RefreshToken,
		user.IsDeleted,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return dberr.Wrap(err, "postgres_user_repo_create_failed", "Email is already registered")
}

// UpdateRefreshToken overwrites the stored refresh token.
func (repository *PostgresUserRepository) UpdateRefreshToken(context context.Context, userID, token string) error {
	const query = `
		UPDATE users.account
		SET refreshtoken = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.db.Exec(context, query, userID, token, repository.now())
	return dberr.Wrap(err, "postgres_user_repo_update_refresh_token_failed", "")
}

// UpdatePassword sets a new hash and revokes the refresh token in one statement.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, refreshtoken = '', updatedat = $3
		WHERE id = $1 AND isdeleted = FALSE`

	_, err := repository.db.Exec(context, query, userID, newHash, repository.now())
	return dberr.Wrap(err, "postgres_user_repo_update_password_failed", "")
}

// SoftDelete flags the account and anchors the recovery grace window at at.
func (repository *PostgresUserRepository) SoftDelete(context context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE users.account
		SET isdeleted = TRUE, deletedat = $2, refreshtoken = '', updatedat = $2
		WHERE id = $1 AND isdeleted = FALSE`

	_, err := repository.db.Exec(context, query, userID, at)
	return dberr.Wrap(err, "postgres_user_repo_soft_delete_failed", "")
}

// Restore reverses a soft delete.
func (repository *PostgresUserRepository) Restore(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET isdeleted = FALSE, deletedat = NULL, updatedat = $2
		WHERE id = $1 AND isdeleted = TRUE`

	_, err := repository.db.Exec(context, query, userID, repository.now())
	return dberr.Wrap(err, "postgres_user_repo_restore_failed", "")
}

// HardDelete removes the row. OTP records cascade.
func (repository *PostgresUserRepository) HardDelete(context context.Context, userID string) error {
	const query = `DELETE FROM users.account WHERE id = $1`

	_, err := repository.db.Exec(context, query, userID)
	return dberr.Wrap(err, "postgres_user_repo_hard_delete_failed", "")
}
