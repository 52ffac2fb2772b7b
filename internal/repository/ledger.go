package repository

import (
	"context"
	"database/sql"

	"github.com/rewear-app/rewear-api/internal/model"
)

// Ledger couples user balances with their audit trail.  Every balance
// change goes through CreditTx or DebitTx so the points column and the
// transactions table can never drift apart.  Both methods expect the
// caller to pass a user loaded with GetForUpdateTx inside the same
// transaction; the row lock makes the read-check-write sequence safe
// under concurrency.
type Ledger struct {
	Users *UserRepo
	Txs   *TransactionRepo
}

func NewLedger(users *UserRepo, txs *TransactionRepo) *Ledger {
	return &Ledger{Users: users, Txs: txs}
}

// CreditTx adds amount points to the locked user and appends a ledger row.
// The entry supplies type, description and references; user, amount and
// the balance snapshots are filled in here.
func (l *Ledger) CreditTx(ctx context.Context, tx *sql.Tx, u model.User, amount int64, entry model.Transaction) (model.Transaction, error) {
	entry.UserID = u.ID
	entry.Amount = amount
	entry.BalanceBefore = u.Points
	entry.BalanceAfter = u.Points + amount
	if err := l.Users.SetPointsTx(ctx, tx, u.ID, entry.BalanceAfter); err != nil {
		return entry, err
	}
	if err := l.Txs.CreateTx(ctx, tx, &entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// DebitTx subtracts amount points from the locked user and appends a
// ledger row.  Returns ErrInsufficientPoints without writing anything if
// the balance cannot cover the amount.
func (l *Ledger) DebitTx(ctx context.Context, tx *sql.Tx, u model.User, amount int64, entry model.Transaction) (model.Transaction, error) {
	if u.Points < amount {
		return entry, ErrInsufficientPoints
	}
	entry.UserID = u.ID
	entry.Amount = amount
	entry.BalanceBefore = u.Points
	entry.BalanceAfter = u.Points - amount
	if err := l.Users.SetPointsTx(ctx, tx, u.ID, entry.BalanceAfter); err != nil {
		return entry, err
	}
	if err := l.Txs.CreateTx(ctx, tx, &entry); err != nil {
		return entry, err
	}
	return entry, nil
}
