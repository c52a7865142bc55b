// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/caseline/internal/platform/database/schema"
	"github.com/taibuivan/caseline/internal/platform/postgres"
)

// otpColumns is the projection scanned by FindActive.
var otpColumns = strings.Join(schema.UserOTP.Columns(), ", ")

// # OTP Repository

// PostgresRepository implements [Repository] on the users.otp table.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewPostgresRepository creates a new PostgreSQL implementation of the Repository.
func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CountSince counts records in the generation window.
func (repository *PostgresRepository) CountSince(context context.Context, userID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM users.otp
		WHERE userid = $1 AND createdat >= $2`

	var count int
	if err := repository.db.QueryRow(context, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_otp_repo_count_failed: %w", err)
	}

	return count, nil
}

// Create inserts a new record.
func (repository *PostgresRepository) Create(context context.Context, record *Record) error {
	const query = `
		INSERT INTO users.otp (id, userid, code, createdat, expiresat, isused)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := repository.db.Exec(context, query,
		record.ID,
		record.UserID,
		record.CodeHash,
		record.CreatedAt,
		record.ExpiresAt,
		record.IsUsed,
	)
	if err != nil {
		return fmt.Errorf("postgres_otp_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindActive locates the record a submitted code refers to.

Description: Filters on usage and expiry in SQL; callers still re-check the
returned record because a concurrent Verify may consume it in between.

Parameters:
  - context: context.Context
  - userID: string
  - codeHash: string
  - now: time.Time

Returns:
  - *Record: nil when no actionable record matches
  - error: Database errors
*/
func (repository *PostgresRepository) FindActive(context context.Context, userID, codeHash string, now time.Time) (*Record, error) {
	query := `
		SELECT ` + otpColumns + `
		FROM users.otp
		WHERE userid = $1 AND code = $2 AND isused = FALSE AND expiresat > $3
		ORDER BY createdat DESC
		LIMIT 1`

	record := &Record{}
	err := repository.db.QueryRow(context, query, userID, codeHash, now).Scan(
		&record.ID,
		&record.UserID,
		&record.CodeHash,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.IsUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_otp_repo_find_active_failed: %w", err)
	}

	return record, nil
}

// MarkUsed consumes one record. The isused predicate makes it a compare-and-set.
func (repository *PostgresRepository) MarkUsed(context context.Context, id string) (bool, error) {
	const query = `UPDATE users.otp SET isused = TRUE WHERE id = $1 AND isused = FALSE`

	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return false, fmt.Errorf("postgres_otp_repo_mark_used_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// InvalidateOthers retires every other pending code of the user.
func (repository *PostgresRepository) InvalidateOthers(context context.Context, userID, keepID string) error {
	const query = `UPDATE users.otp SET isused = TRUE WHERE userid = $1 AND id <> $2 AND isused = FALSE`

	if _, err := repository.db.Exec(context, query, userID, keepID); err != nil {
		return fmt.Errorf("postgres_otp_repo_invalidate_others_failed: %w", err)
	}

	return nil
}

// PurgeBefore physically removes old records.
func (repository *PostgresRepository) PurgeBefore(context context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM users.otp WHERE createdat < $1`

	tag, err := repository.db.Exec(context, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres_otp_repo_purge_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
