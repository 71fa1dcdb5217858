package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const giftCardColumns = `id, restaurant_id, code, current_balance, is_active, expiry_date, created_at`

func scanGiftCard(row pgx.Row) (GiftCard, error) {
	var g GiftCard
	err := row.Scan(&g.ID, &g.RestaurantID, &g.Code, &g.CurrentBalance, &g.IsActive, &g.ExpiryDate, &g.CreatedAt)
	return g, err
}

type GetGiftCardByCodeParams struct {
	RestaurantID uuid.UUID
	Code         string
}

const getGiftCardByCode = `
SELECT ` + giftCardColumns + ` FROM gift_cards WHERE restaurant_id = $1 AND code = $2`

func (q *Queries) GetGiftCardByCode(ctx context.Context, arg GetGiftCardByCodeParams) (GiftCard, error) {
	return scanGiftCard(q.db.QueryRow(ctx, getGiftCardByCode, arg.RestaurantID, arg.Code))
}

type GetGiftCardForUpdateParams struct {
	RestaurantID uuid.UUID
	Code         string
}

const getGiftCardForUpdate = `
SELECT ` + giftCardColumns + ` FROM gift_cards WHERE restaurant_id = $1 AND code = $2 FOR NO KEY UPDATE`

func (q *Queries) GetGiftCardForUpdate(ctx context.Context, arg GetGiftCardForUpdateParams) (GiftCard, error) {
	return scanGiftCard(q.db.QueryRow(ctx, getGiftCardForUpdate, arg.RestaurantID, arg.Code))
}

type UpdateGiftCardBalanceParams struct {
	ID             uuid.UUID
	CurrentBalance pgtype.Numeric
	IsActive       bool
}

const updateGiftCardBalance = `
UPDATE gift_cards SET current_balance = $2, is_active = $3 WHERE id = $1
RETURNING ` + giftCardColumns

func (q *Queries) UpdateGiftCardBalance(ctx context.Context, arg UpdateGiftCardBalanceParams) (GiftCard, error) {
	return scanGiftCard(q.db.QueryRow(ctx, updateGiftCardBalance, arg.ID, arg.CurrentBalance, arg.IsActive))
}

type CreateGiftCardTransactionParams struct {
	GiftCardID      uuid.UUID
	TransactionType string
	Amount          pgtype.Numeric
	PaymentID       pgtype.UUID
	PerformedBy     pgtype.UUID
}

const createGiftCardTransaction = `
INSERT INTO gift_card_transactions (gift_card_id, transaction_type, amount, payment_id, performed_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, gift_card_id, transaction_type, amount, payment_id, performed_by, created_at`

func (q *Queries) CreateGiftCardTransaction(ctx context.Context, arg CreateGiftCardTransactionParams) (GiftCardTransaction, error) {
	var t GiftCardTransaction
	err := q.db.QueryRow(ctx, createGiftCardTransaction,
		arg.GiftCardID, arg.TransactionType, arg.Amount, arg.PaymentID, arg.PerformedBy).
		Scan(&t.ID, &t.GiftCardID, &t.TransactionType, &t.Amount, &t.PaymentID, &t.PerformedBy, &t.CreatedAt)
	return t, err
}

const listGiftCardTransactions = `
SELECT id, gift_card_id, transaction_type, amount, payment_id, performed_by, created_at
FROM gift_card_transactions WHERE gift_card_id = $1 ORDER BY created_at`

func (q *Queries) ListGiftCardTransactions(ctx context.Context, giftCardID uuid.UUID) ([]GiftCardTransaction, error) {
	rows, err := q.db.Query(ctx, listGiftCardTransactions, giftCardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []GiftCardTransaction
	for rows.Next() {
		var t GiftCardTransaction
		if err := rows.Scan(&t.ID, &t.GiftCardID, &t.TransactionType, &t.Amount, &t.PaymentID, &t.PerformedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
