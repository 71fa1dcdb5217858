package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreatePaymentParams struct {
	OrderID       uuid.UUID
	PaymentMethod string
	Amount        pgtype.Numeric
	ProcessedBy   uuid.UUID
}

const createPayment = `
INSERT INTO payments (order_id, payment_method, amount, status, processed_by)
VALUES ($1, $2, $3, 'COMPLETED', $4)
RETURNING id, order_id, payment_method, amount, status, processed_by, processed_at`

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.PaymentMethod, arg.Amount, arg.ProcessedBy).
		Scan(&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount, &p.Status, &p.ProcessedBy, &p.ProcessedAt)
	return p, err
}

const listPaymentsByOrder = `
SELECT id, order_id, payment_method, amount, status, processed_by, processed_at
FROM payments WHERE order_id = $1 ORDER BY processed_at`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount, &p.Status, &p.ProcessedBy, &p.ProcessedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
