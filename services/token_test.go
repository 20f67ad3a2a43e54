package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenService_CreateToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewTokenService(db)

	mock.ExpectExec("INSERT INTO api_tokens").
		WithArgs(sqlmock.AnyArg(), "ci-bot", "alice", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, secret, err := svc.CreateToken(context.Background(), "alice", "ci-bot")
	require.NoError(t, err)

	assert.NotEmpty(t, token.ID)
	assert.Equal(t, "alice", token.ActorID)
	assert.True(t, strings.HasPrefix(secret, "pgt_"), "secret should carry the token prefix")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenService_ValidateToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewTokenService(db)
	ctx := context.Background()

	secret := "pgt_0011223344"
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "actor_id", "token_hash", "created_at"}).
			AddRow("tok-1", "ci-bot", "alice", string(hash), time.Now())
	}

	t.Run("valid secret", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM api_tokens").WillReturnRows(rows())
		// async last_used update may or may not land before the test ends
		mock.MatchExpectationsInOrder(false)
		mock.ExpectExec("UPDATE api_tokens").WillReturnResult(sqlmock.NewResult(0, 1))

		token, err := svc.ValidateToken(ctx, secret)
		require.NoError(t, err)
		assert.Equal(t, "alice", token.ActorID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM api_tokens").WillReturnRows(rows())

		_, err := svc.ValidateToken(ctx, "pgt_wrong")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
