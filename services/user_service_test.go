package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"

	"signalMapAPI/internal/errvalues"
)

func TestResolveUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewUserService(mock)
	ctx := context.Background()
	userID := uuid.New()
	query := regexp.QuoteMeta(`SELECT id FROM users WHERE clerk_id = $1`)

	t.Run("resolved", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("user_2abc").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(userID))

		id, err := svc.ResolveUserID(ctx, "user_2abc")
		assert.NoError(t, err)
		assert.Equal(t, userID, id)
	})

	t.Run("unknown clerk id", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("user_missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := svc.ResolveUserID(ctx, "user_missing")
		assert.ErrorIs(t, err, errvalues.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("user_2abc").
			WillReturnError(errors.New("db error"))

		_, err := svc.ResolveUserID(ctx, "user_2abc")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, errvalues.ErrNotFound)
	})
}

func TestDeleteUserByClerkID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewUserService(mock)
	ctx := context.Background()
	query := regexp.QuoteMeta(`DELETE FROM users WHERE clerk_id = $1`)

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("user_2abc").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, svc.DeleteUserByClerkID(ctx, "user_2abc"))
	})

	t.Run("nothing to delete", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("user_missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := svc.DeleteUserByClerkID(ctx, "user_missing")
		assert.ErrorIs(t, err, errvalues.ErrNotFound)
	})
}
