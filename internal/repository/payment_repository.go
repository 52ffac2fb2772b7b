package repository

import (
	"context"
	"database/sql"

	"github.com/rewear-app/rewear-api/internal/model"
)

// PaymentRepo persists credit-purchase attempts against the simulated
// gateway.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts a payment row within a transaction and populates the
// generated ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (user_id,package_id,amount_cents,points_to_receive,
		 payment_method,gateway,gateway_payment_id,status,
		 billing_first_name,billing_last_name,billing_email,billing_phone)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.PackageID, p.AmountCents, p.PointsToReceive,
		p.PaymentMethod, p.Gateway, p.GatewayPaymentID, p.Status,
		p.BillingFirstName, p.BillingLastName, p.BillingEmail, p.BillingPhone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a payment row.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRowContext(ctx,
		`SELECT id,user_id,package_id,amount_cents,points_to_receive,
		 payment_method,gateway,gateway_payment_id,status,
		 billing_first_name,billing_last_name,billing_email,billing_phone,
		 created_at,updated_at FROM payments WHERE id=? LIMIT 1`, id).
		Scan(&p.ID, &p.UserID, &p.PackageID, &p.AmountCents, &p.PointsToReceive,
			&p.PaymentMethod, &p.Gateway, &p.GatewayPaymentID, &p.Status,
			&p.BillingFirstName, &p.BillingLastName, &p.BillingEmail, &p.BillingPhone,
			&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListByUser returns a user's payment history, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Payment, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id,user_id,package_id,amount_cents,points_to_receive,
		 payment_method,gateway,gateway_payment_id,status,
		 billing_first_name,billing_last_name,billing_email,billing_phone,
		 created_at,updated_at FROM payments WHERE user_id=?
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payment, 0, limit)
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.PackageID, &p.AmountCents,
			&p.PointsToReceive, &p.PaymentMethod, &p.Gateway, &p.GatewayPaymentID,
			&p.Status, &p.BillingFirstName, &p.BillingLastName, &p.BillingEmail,
			&p.BillingPhone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
