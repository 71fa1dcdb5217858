package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetMenuItemForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

type GetMenuItemForOrderRow struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	Price           pgtype.Numeric
	IsAvailable     bool
	PrepTimeMinutes int32
}

const getMenuItemForOrder = `
SELECT id, restaurant_id, price, is_available, prep_time_minutes
FROM menu_items WHERE id = $1 AND restaurant_id = $2`

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	var r GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, getMenuItemForOrder, arg.ID, arg.RestaurantID).
		Scan(&r.ID, &r.RestaurantID, &r.Price, &r.IsAvailable, &r.PrepTimeMinutes)
	return r, err
}

type GetModifierForOrderRow struct {
	ID          uuid.UUID
	Price       pgtype.Numeric
	IsAvailable bool
	MenuItemID  uuid.UUID
}

// Joins through modifier_groups so the service can verify the modifier
// belongs to the ordered menu item.
const getModifierForOrder = `
SELECT m.id, m.price, m.is_available, g.menu_item_id
FROM modifiers m
JOIN modifier_groups g ON g.id = m.modifier_group_id
WHERE m.id = $1`

func (q *Queries) GetModifierForOrder(ctx context.Context, id uuid.UUID) (GetModifierForOrderRow, error) {
	var r GetModifierForOrderRow
	err := q.db.QueryRow(ctx, getModifierForOrder, id).
		Scan(&r.ID, &r.Price, &r.IsAvailable, &r.MenuItemID)
	return r, err
}

const listAvailableMenuItems = `
SELECT id, restaurant_id, name, price, is_available, prep_time_minutes
FROM menu_items WHERE restaurant_id = $1 AND is_available ORDER BY name`

func (q *Queries) ListAvailableMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.IsAvailable, &m.PrepTimeMinutes); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMenuItemPrepTime = `
SELECT prep_time_minutes FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItemPrepTime(ctx context.Context, id uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getMenuItemPrepTime, id).Scan(&n)
	return n, err
}

type GetCustomerParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

const getCustomer = `
SELECT id, restaurant_id, full_name, phone, created_at FROM customers WHERE id = $1 AND restaurant_id = $2`

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, getCustomer, arg.ID, arg.RestaurantID).
		Scan(&c.ID, &c.RestaurantID, &c.FullName, &c.Phone, &c.CreatedAt)
	return c, err
}

type GetRestaurantRow struct {
	ID          uuid.UUID
	Name        string
	OrderPrefix string
	TaxRate     pgtype.Numeric
}

const getRestaurant = `
SELECT id, name, order_prefix, tax_rate FROM restaurants WHERE id = $1`

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (GetRestaurantRow, error) {
	var r GetRestaurantRow
	err := q.db.QueryRow(ctx, getRestaurant, id).Scan(&r.ID, &r.Name, &r.OrderPrefix, &r.TaxRate)
	return r, err
}
