// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/sec"
)

var userRowColumns = []string{
	"id", "firstname", "lastname", "email", "passwordhash", "role",
	"refreshtoken", "isdeleted", "deletedat", "createdat", "updatedat",
}

func newMockUserRepository(t *testing.T) (*PostgresUserRepository, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repository := NewUserRepository(mock)
	repository.now = func() time.Time { return now }
	return repository, mock, now
}

/*
TestUserRepository_FindByEmail scans active rows and maps misses to NotFound.
*/
func TestUserRepository_FindByEmail(t *testing.T) {
	repository, mock, now := newMockUserRepository(t)
	ctx := context.Background()
	query := regexp.QuoteMeta(`WHERE email = $1 AND isdeleted = FALSE`)

	mock.ExpectQuery(query).
		WithArgs("a@b.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("u-1", "ada", "lovelace", "a@b.com", "hash", sec.RoleMediator, "refresh", false, (*time.Time)(nil), now, now))

	user, err := repository.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, sec.RoleMediator, user.Role)
	assert.Equal(t, "refresh", user.RefreshToken)
	assert.Nil(t, user.DeletedAt)

	mock.ExpectQuery(query).
		WithArgs("nobody@b.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	_, err = repository.FindByEmail(ctx, "nobody@b.com")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_FindDeletedByEmail only looks at soft-deleted rows.
*/
func TestUserRepository_FindDeletedByEmail(t *testing.T) {
	repository, mock, now := newMockUserRepository(t)
	deletedAt := now.Add(-48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE email = $1 AND isdeleted = TRUE`)).
		WithArgs("a@b.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("u-1", "ada", "lovelace", "a@b.com", "hash", sec.RoleUser, "", true, &deletedAt, now, now))

	user, err := repository.FindDeletedByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, user.IsDeleted)
	require.NotNil(t, user.DeletedAt)
	assert.Equal(t, deletedAt, *user.DeletedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_CreateConflict maps a unique violation to a Conflict.
*/
func TestUserRepository_CreateConflict(t *testing.T) {
	repository, mock, now := newMockUserRepository(t)
	user := &User{ID: "u-1", FirstName: "Ada", LastName: "Lovelace", Email: "a@b.com", PasswordHash: "hash", Role: sec.RoleUser}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users.account`)).
		WithArgs("u-1", "Ada", "Lovelace", "a@b.com", "hash", sec.RoleUser, "", false, now, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repository.Create(context.Background(), user)
	assertAppError(t, err, apperr.KindConflict, "Email is already registered")
	assert.Equal(t, now, user.CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_LifecycleUpdates checks the soft delete, restore and hard
delete statements.
*/
func TestUserRepository_LifecycleUpdates(t *testing.T) {
	repository, mock, now := newMockUserRepository(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`SET isdeleted = TRUE, deletedat = $2, refreshtoken = ''`)).
		WithArgs("u-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET isdeleted = FALSE, deletedat = NULL`)).
		WithArgs("u-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET passwordhash = $2, refreshtoken = ''`)).
		WithArgs("u-1", "new-hash", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users.account WHERE id = $1`)).
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repository.SoftDelete(ctx, "u-1", now))
	require.NoError(t, repository.Restore(ctx, "u-1"))
	require.NoError(t, repository.UpdatePassword(ctx, "u-1", "new-hash"))
	require.NoError(t, repository.HardDelete(ctx, "u-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUserRepository_WrapsDriverErrors keeps the action in the message.
*/
func TestUserRepository_WrapsDriverErrors(t *testing.T) {
	repository, mock, _ := newMockUserRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`SET refreshtoken = $2`)).
		WithArgs("u-1", "", pgxmock.AnyArg()).
		WillReturnError(errors.New("conn reset"))

	err := repository.UpdateRefreshToken(context.Background(), "u-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_user_repo_update_refresh_token_failed")
	assert.False(t, apperr.IsAppError(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
