package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rewear-app/rewear-api/internal/model"
)

// TransactionRepo appends and reads ledger rows.  Rows are inserted only
// through CreateTx so every balance change stays inside the transaction
// that moved the balance.
type TransactionRepo struct{ db *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txColumns = "id,user_id,tx_type,amount,description,status," +
	"payment_method,payment_id,item_id,swap_request_id,related_user_id," +
	"balance_before,balance_after,created_at"

func scanTransaction(row interface{ Scan(...interface{}) error }) (model.Transaction, error) {
	var (
		t       model.Transaction
		itemID  sql.NullInt64
		swapID  sql.NullInt64
		related sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description,
		&t.Status, &t.PaymentMethod, &t.PaymentID,
		&itemID, &swapID, &related,
		&t.BalanceBefore, &t.BalanceAfter, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	if itemID.Valid {
		v := uint64(itemID.Int64)
		t.ItemID = &v
	}
	if swapID.Valid {
		v := uint64(swapID.Int64)
		t.SwapRequestID = &v
	}
	if related.Valid {
		v := uint64(related.Int64)
		t.RelatedUserID = &v
	}
	return t, nil
}

// CreateTx appends a ledger row within a transaction and populates the
// generated ID.  An empty payment method defaults to "system".
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	if t.PaymentMethod == "" {
		t.PaymentMethod = "system"
	}
	if t.Status == "" {
		t.Status = model.TxStatusCompleted
	}
	var itemID, swapID, related interface{}
	if t.ItemID != nil {
		itemID = *t.ItemID
	}
	if t.SwapRequestID != nil {
		swapID = *t.SwapRequestID
	}
	if t.RelatedUserID != nil {
		related = *t.RelatedUserID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id,tx_type,amount,description,status,
		 payment_method,payment_id,item_id,swap_request_id,related_user_id,
		 balance_before,balance_after)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.UserID, t.Type, t.Amount, t.Description, t.Status,
		t.PaymentMethod, t.PaymentID, itemID, swapID, related,
		t.BalanceBefore, t.BalanceAfter)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// TxFilter narrows ListByUser results.
type TxFilter struct {
	Type   string
	Status string
	Page   int
	Limit  int
}

// ListByUser returns a user's ledger history, newest first, plus the total
// match count.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uint64, f TxFilter) ([]model.Transaction, int, error) {
	where := []string{"user_id=?"}
	args := []interface{}{userID}
	if f.Type != "" && f.Type != "all" {
		where = append(where, "tx_type=?")
		args = append(args, f.Type)
	}
	if f.Status != "" && f.Status != "all" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit, 20)
	q := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		txColumns, cond)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// RecentByUser returns the user's most recent ledger rows for the
// dashboard widget.
func (r *TransactionRepo) RecentByUser(ctx context.Context, userID uint64, limit int) ([]model.Transaction, error) {
	if limit < 1 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UserStats aggregates a user's ledger for the credits page.
func (r *TransactionRepo) UserStats(ctx context.Context, userID uint64) (model.TransactionStats, error) {
	var s model.TransactionStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN tx_type='purchase' THEN amount ELSE 0 END),0),
		        COALESCE(SUM(CASE WHEN tx_type='deduction' THEN amount ELSE 0 END),0),
		        COALESCE(SUM(CASE WHEN tx_type='bonus' THEN amount ELSE 0 END),0),
		        COALESCE(SUM(status='completed'),0),
		        COALESCE(SUM(status='pending'),0)
		 FROM transactions WHERE user_id=?`, userID).
		Scan(&s.TotalTransactions, &s.TotalPurchased, &s.TotalDeducted,
			&s.TotalBonus, &s.CompletedTransactions, &s.PendingTransactions)
	return s, err
}

// TxTotals aggregates the whole ledger for the admin dashboard.
type TxTotals struct {
	TotalTransactions int   `json:"totalTransactions"`
	PointsPurchased   int64 `json:"pointsPurchased"`
	PointsSpent       int64 `json:"pointsSpent"`
}

// Totals computes platform-wide ledger aggregates.
func (r *TransactionRepo) Totals(ctx context.Context) (TxTotals, error) {
	var t TxTotals
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN tx_type='purchase' THEN amount ELSE 0 END),0),
		        COALESCE(SUM(CASE WHEN tx_type='deduction' THEN amount ELSE 0 END),0)
		 FROM transactions`).
		Scan(&t.TotalTransactions, &t.PointsPurchased, &t.PointsSpent)
	return t, err
}
