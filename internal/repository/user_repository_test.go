package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/model"
)

func TestUserCreateNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Maya", "maya@example.com", sqlmock.AnyArg(), model.RoleUser, int64(100)).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := repo.Create(context.Background(), " Maya ", "  MAYA@Example.COM ",
		"hunter22", model.RoleUser, model.StartingPoints, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'maya@example.com' for key 'users.email'"))

	_, err = repo.Create(context.Background(), "Maya", "maya@example.com",
		"hunter22", model.RoleUser, model.StartingPoints, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func userRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "avatar", "bio", "points", "role",
		"city", "state", "country", "items_listed", "items_swapped", "total_swaps",
		"rating", "reviews", "is_active", "last_active", "created_at", "updated_at",
	}).AddRow(7, "Maya", "maya@example.com", "$2a$04$hash", "", "", 150, model.RoleUser,
		"Lisbon", "", "PT", 3, 1, 2, 4.5, 2, true, now, now, now)
}

func TestUserGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=").
		WithArgs(uint64(7)).
		WillReturnRows(userRow())

	u, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Maya", u.Name)
	assert.Equal(t, int64(150), u.Points)
	assert.Equal(t, "Lisbon", u.Location.City)
	assert.Equal(t, 4.5, u.Stats.Rating)
	assert.Equal(t, 2, u.Stats.Reviews)
}

func TestUserListWhitelistsSortColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	// a hostile sort value must fall back to created_at
	mock.ExpectQuery("ORDER BY created_at DESC").
		WillReturnRows(userRow())

	users, total, err := repo.List(context.Background(), UserFilter{
		SortBy:   "points; DROP TABLE users",
		SortDesc: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
