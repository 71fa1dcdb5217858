package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, menu_item_id, quantity, unit_price, notes, status`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &it.UnitPrice, &it.Notes, &it.Status)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	Notes      pgtype.Text
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, notes, status)
VALUES ($1, $2, $3, $4, $5, 'PENDING')
RETURNING ` + orderItemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.UnitPrice, arg.Notes))
}

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

const getOrderItem = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1 AND order_id = $2`

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, arg.ID, arg.OrderID))
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateOrderItemParams struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	Quantity int32
	Notes    pgtype.Text
}

const updateOrderItem = `
UPDATE order_items SET quantity = $3, notes = $4 WHERE id = $1 AND order_id = $2
RETURNING ` + orderItemColumns

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItem, arg.ID, arg.OrderID, arg.Quantity, arg.Notes))
}

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

const deleteOrderItem = `
DELETE FROM order_items WHERE id = $1 AND order_id = $2`

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) error {
	tag, err := q.db.Exec(ctx, deleteOrderItem, arg.ID, arg.OrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const countOrderItems = `
SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND status <> 'CANCELLED'`

func (q *Queries) CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrderItems, orderID).Scan(&n)
	return n, err
}

type UpdateOrderItemStatusParams struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Status     string
	FromStatus string
}

// The status predicate makes the update a compare-and-swap: a concurrent
// transition surfaces as pgx.ErrNoRows instead of silently overwriting.
const updateOrderItemStatus = `
UPDATE order_items SET status = $3 WHERE id = $1 AND order_id = $2 AND status = $4
RETURNING ` + orderItemColumns

func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemStatus, arg.ID, arg.OrderID, arg.Status, arg.FromStatus))
}

type CascadeOrderItemStatusParams struct {
	OrderID    uuid.UUID
	Status     string
	FromStatus string
}

// Bulk mirror: moves every item still in the prior state along with the order.
const cascadeOrderItemStatus = `
UPDATE order_items SET status = $2 WHERE order_id = $1 AND status = $3`

func (q *Queries) CascadeOrderItemStatus(ctx context.Context, arg CascadeOrderItemStatusParams) error {
	_, err := q.db.Exec(ctx, cascadeOrderItemStatus, arg.OrderID, arg.Status, arg.FromStatus)
	return err
}

const listOrderItemStatuses = `
SELECT status FROM order_items WHERE order_id = $1`

func (q *Queries) ListOrderItemStatuses(ctx context.Context, orderID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listOrderItemStatuses, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

type CreateOrderItemModifierParams struct {
	OrderItemID uuid.UUID
	ModifierID  uuid.UUID
	UnitPrice   pgtype.Numeric
}

const createOrderItemModifier = `
INSERT INTO order_item_modifiers (order_item_id, modifier_id, unit_price)
VALUES ($1, $2, $3)
RETURNING id, order_item_id, modifier_id, unit_price`

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	var m OrderItemModifier
	err := q.db.QueryRow(ctx, createOrderItemModifier, arg.OrderItemID, arg.ModifierID, arg.UnitPrice).
		Scan(&m.ID, &m.OrderItemID, &m.ModifierID, &m.UnitPrice)
	return m, err
}

const listOrderItemModifiersByOrderItem = `
SELECT id, order_item_id, modifier_id, unit_price FROM order_item_modifiers WHERE order_item_id = $1 ORDER BY id`

func (q *Queries) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByOrderItem, orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.ModifierID, &m.UnitPrice); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

const deleteOrderItemModifiers = `
DELETE FROM order_item_modifiers WHERE order_item_id = $1`

func (q *Queries) DeleteOrderItemModifiers(ctx context.Context, orderItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemModifiers, orderItemID)
	return err
}

type ListKitchenItemsRow struct {
	OrderItem
	MenuItemName    string
	PrepTimeMinutes int32
}

const listKitchenItems = `
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.unit_price, oi.notes, oi.status,
	mi.name, mi.prep_time_minutes
FROM order_items oi
JOIN menu_items mi ON mi.id = oi.menu_item_id
WHERE oi.order_id = $1 AND oi.status <> 'CANCELLED'
ORDER BY oi.id`

func (q *Queries) ListKitchenItems(ctx context.Context, orderID uuid.UUID) ([]ListKitchenItemsRow, error) {
	rows, err := q.db.Query(ctx, listKitchenItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListKitchenItemsRow
	for rows.Next() {
		var r ListKitchenItemsRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.MenuItemID, &r.Quantity, &r.UnitPrice, &r.Notes, &r.Status,
			&r.MenuItemName, &r.PrepTimeMinutes); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
