package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/model"
)

func newLedgerForTest(t *testing.T) (*Ledger, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	users := NewUserRepo(db)
	txs := NewTransactionRepo(db)
	return NewLedger(users, txs), mock, func() { db.Close() }
}

func TestLedgerDebitInsufficient(t *testing.T) {
	ledger, mock, done := newLedgerForTest(t)
	defer done()

	mock.ExpectBegin()
	tx, err := ledger.Users.DB.Begin()
	require.NoError(t, err)

	u := model.User{ID: 7, Points: 30}
	_, err = ledger.DebitTx(context.Background(), tx, u, 100, model.Transaction{
		Type: model.TxTypeDeduction,
	})
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	// no UPDATE or INSERT must have been issued
	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerDebit(t *testing.T) {
	ledger, mock, done := newLedgerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET points=").
		WithArgs(int64(50), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	tx, err := ledger.Users.DB.Begin()
	require.NoError(t, err)

	u := model.User{ID: 7, Points: 150}
	entry, err := ledger.DebitTx(context.Background(), tx, u, 100, model.Transaction{
		Type:        model.TxTypeDeduction,
		Description: "Redeemed item: Denim jacket",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(41), entry.ID)
	assert.Equal(t, int64(150), entry.BalanceBefore)
	assert.Equal(t, int64(50), entry.BalanceAfter)
	assert.Equal(t, model.TxStatusCompleted, entry.Status)
	assert.Equal(t, "system", entry.PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerCredit(t *testing.T) {
	ledger, mock, done := newLedgerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET points=").
		WithArgs(int64(190), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	tx, err := ledger.Users.DB.Begin()
	require.NoError(t, err)

	u := model.User{ID: 3, Points: 100}
	entry, err := ledger.CreditTx(context.Background(), tx, u, 90, model.Transaction{
		Type:        model.TxTypeBonus,
		Description: "Item sold: Denim jacket",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(100), entry.BalanceBefore)
	assert.Equal(t, int64(190), entry.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}
