package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const voucherColumns = `id, restaurant_id, code, discount_type, value, min_purchase,
	is_active, start_date, expiry_date, usage_limit, usage_count`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.RestaurantID, &v.Code, &v.DiscountType, &v.Value, &v.MinPurchase,
		&v.IsActive, &v.StartDate, &v.ExpiryDate, &v.UsageLimit, &v.UsageCount)
	return v, err
}

type GetVoucherByCodeParams struct {
	RestaurantID uuid.UUID
	Code         string
}

const getVoucherByCode = `
SELECT ` + voucherColumns + ` FROM vouchers WHERE restaurant_id = $1 AND code = $2`

func (q *Queries) GetVoucherByCode(ctx context.Context, arg GetVoucherByCodeParams) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, getVoucherByCode, arg.RestaurantID, arg.Code))
}

const getVoucher = `
SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

func (q *Queries) GetVoucher(ctx context.Context, id uuid.UUID) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, getVoucher, id))
}

// IncrementVoucherUsage enforces the usage limit atomically: zero rows
// updated means the voucher is exhausted.
const incrementVoucherUsage = `
UPDATE vouchers SET usage_count = usage_count + 1
WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`

func (q *Queries) IncrementVoucherUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, incrementVoucherUsage, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const decrementVoucherUsage = `
UPDATE vouchers SET usage_count = GREATEST(usage_count - 1, 0) WHERE id = $1`

func (q *Queries) DecrementVoucherUsage(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, decrementVoucherUsage, id)
	return err
}

type CreateVoucherRedemptionParams struct {
	OrderID    uuid.UUID
	VoucherID  uuid.UUID
	RedeemedBy uuid.UUID
}

const createVoucherRedemption = `
INSERT INTO voucher_redemptions (order_id, voucher_id, redeemed_by)
VALUES ($1, $2, $3)
RETURNING id, order_id, voucher_id, redeemed_by, created_at`

func (q *Queries) CreateVoucherRedemption(ctx context.Context, arg CreateVoucherRedemptionParams) (VoucherRedemption, error) {
	var r VoucherRedemption
	err := q.db.QueryRow(ctx, createVoucherRedemption, arg.OrderID, arg.VoucherID, arg.RedeemedBy).
		Scan(&r.ID, &r.OrderID, &r.VoucherID, &r.RedeemedBy, &r.CreatedAt)
	return r, err
}

const getVoucherRedemptionByOrder = `
SELECT id, order_id, voucher_id, redeemed_by, created_at
FROM voucher_redemptions WHERE order_id = $1`

func (q *Queries) GetVoucherRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (VoucherRedemption, error) {
	var r VoucherRedemption
	err := q.db.QueryRow(ctx, getVoucherRedemptionByOrder, orderID).
		Scan(&r.ID, &r.OrderID, &r.VoucherID, &r.RedeemedBy, &r.CreatedAt)
	return r, err
}

const deleteVoucherRedemption = `
DELETE FROM voucher_redemptions WHERE order_id = $1`

func (q *Queries) DeleteVoucherRedemption(ctx context.Context, orderID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteVoucherRedemption, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
