package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, order_number, order_type, status, table_id, customer_id,
	subtotal, tax_amount, tip_amount, total_amount, notes, created_by, created_at, updated_at, completed_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.OrderNumber, &o.OrderType, &o.Status, &o.TableID, &o.CustomerID,
		&o.Subtotal, &o.TaxAmount, &o.TipAmount, &o.TotalAmount, &o.Notes, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	RestaurantID uuid.UUID
	OrderNumber  string
	OrderType    string
	TableID      pgtype.UUID
	CustomerID   pgtype.UUID
	Subtotal     pgtype.Numeric
	TaxAmount    pgtype.Numeric
	TipAmount    pgtype.Numeric
	TotalAmount  pgtype.Numeric
	Notes        pgtype.Text
	CreatedBy    uuid.UUID
}

const createOrder = `
INSERT INTO orders (restaurant_id, order_number, order_type, status, table_id, customer_id,
	subtotal, tax_amount, tip_amount, total_amount, notes, created_by)
VALUES ($1, $2, $3, 'PENDING', $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.RestaurantID, arg.OrderNumber, arg.OrderType, arg.TableID, arg.CustomerID,
		arg.Subtotal, arg.TaxAmount, arg.TipAmount, arg.TotalAmount, arg.Notes, arg.CreatedBy,
	))
}

type GetOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND restaurant_id = $2`

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.RestaurantID))
}

type GetOrderForUpdateParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// FOR NO KEY UPDATE serializes concurrent mutations of the same order
// without blocking inserts that reference it.
const getOrderForUpdate = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND restaurant_id = $2 FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.RestaurantID))
}

type ListOrdersParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
	OrderType    pgtype.Text
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
	Limit        int32
	Offset       int32
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE restaurant_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR order_type = $3)
  AND ($4::timestamptz IS NULL OR created_at >= $4)
  AND ($5::timestamptz IS NULL OR created_at < $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.RestaurantID, arg.Status, arg.OrderType, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID          uuid.UUID
	Status      string
	FromStatus  string
	CompletedAt pgtype.Timestamptz
}

// Conditional on the status observed by the caller; zero rows updated means
// a concurrent transition won and the caller must report a conflict.
const updateOrderStatus = `
UPDATE orders
SET status = $2, completed_at = COALESCE(completed_at, $4), updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus, arg.CompletedAt))
}

type UpdateOrderTotalsParams struct {
	ID          uuid.UUID
	Subtotal    pgtype.Numeric
	TaxAmount   pgtype.Numeric
	TotalAmount pgtype.Numeric
}

const updateOrderTotals = `
UPDATE orders
SET subtotal = $2, tax_amount = $3, total_amount = $4, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotals, arg.ID, arg.Subtotal, arg.TaxAmount, arg.TotalAmount))
}

type GetNextOrderSequenceParams struct {
	RestaurantID uuid.UUID
	CreatedAfter time.Time
}

const getNextOrderSequence = `
SELECT COUNT(*) + 1 FROM orders WHERE restaurant_id = $1 AND created_at >= $2`

func (q *Queries) GetNextOrderSequence(ctx context.Context, arg GetNextOrderSequenceParams) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderSequence, arg.RestaurantID, arg.CreatedAfter).Scan(&n)
	return n, err
}

type CountActiveOrdersForTableParams struct {
	TableID        uuid.UUID
	ExcludeOrderID uuid.UUID
}

const countActiveOrdersForTable = `
SELECT COUNT(*) FROM orders
WHERE table_id = $1 AND id <> $2 AND status NOT IN ('COMPLETED', 'CANCELLED')`

func (q *Queries) CountActiveOrdersForTable(ctx context.Context, arg CountActiveOrdersForTableParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countActiveOrdersForTable, arg.TableID, arg.ExcludeOrderID).Scan(&n)
	return n, err
}

type ListActiveOrdersRow struct {
	Order
	TableNumber pgtype.Int4
}

const listActiveOrders = `
SELECT o.id, o.restaurant_id, o.order_number, o.order_type, o.status, o.table_id, o.customer_id,
	o.subtotal, o.tax_amount, o.tip_amount, o.total_amount, o.notes, o.created_by,
	o.created_at, o.updated_at, o.completed_at, t.number
FROM orders o
LEFT JOIN tables t ON t.id = o.table_id
WHERE o.restaurant_id = $1 AND o.status NOT IN ('COMPLETED', 'CANCELLED')
ORDER BY o.created_at`

func (q *Queries) ListActiveOrders(ctx context.Context, restaurantID uuid.UUID) ([]ListActiveOrdersRow, error) {
	rows, err := q.db.Query(ctx, listActiveOrders, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListActiveOrdersRow
	for rows.Next() {
		var r ListActiveOrdersRow
		if err := rows.Scan(
			&r.ID, &r.RestaurantID, &r.OrderNumber, &r.OrderType, &r.Status, &r.TableID, &r.CustomerID,
			&r.Subtotal, &r.TaxAmount, &r.TipAmount, &r.TotalAmount, &r.Notes, &r.CreatedBy,
			&r.CreatedAt, &r.UpdatedAt, &r.CompletedAt, &r.TableNumber,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
