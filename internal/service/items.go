package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/pricing"
)

// AddItemRequest adds one item to an existing order.
type AddItemRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	Item         CreateOrderItemRequest
}

// UpdateItemRequest changes the quantity or notes of an order item.
type UpdateItemRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	OrderItemID  uuid.UUID
	Quantity     int32
	Notes        string
}

// RemoveItemRequest removes an item from an order.
type RemoveItemRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	OrderItemID  uuid.UUID
}

// AddItem appends a new item to an editable order and reprices it.
// Blocked while a voucher is applied: the discount was computed against
// the old subtotal and would no longer invert cleanly.
func (s *OrderService) AddItem(ctx context.Context, req AddItemRequest) (*database.Order, error) {
	if req.Item.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.addItemTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventOrderItemsChanged, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return order, nil
}

func (s *OrderService) addItemTx(ctx context.Context, req AddItemRequest) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.RestaurantID, req.OrderID)
	if err != nil {
		return nil, err
	}

	pi, err := s.priceItem(ctx, store, req.RestaurantID, req.Item)
	if err != nil {
		return nil, err
	}
	pi.params.OrderID = order.ID

	item, err := store.CreateOrderItem(ctx, pi.params)
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}
	for _, mod := range pi.modifiers {
		if _, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
			OrderItemID: item.ID,
			ModifierID:  mod.modifierID,
			UnitPrice:   decimalToNumeric(mod.unitPrice),
		}); err != nil {
			return nil, fmt.Errorf("create order item modifier: %w", err)
		}
	}

	updated, err := s.repriceOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// UpdateItem changes an item's quantity or notes and reprices the order.
// The snapshotted unit price never changes, only the quantity.
func (s *OrderService) UpdateItem(ctx context.Context, req UpdateItemRequest) (*database.Order, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.updateItemTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventOrderItemsChanged, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return order, nil
}

func (s *OrderService) updateItemTx(ctx context.Context, req UpdateItemRequest) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.RestaurantID, req.OrderID)
	if err != nil {
		return nil, err
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{
		ID:      req.OrderItemID,
		OrderID: order.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	notes := item.Notes
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	if _, err := store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
		ID:       item.ID,
		Quantity: req.Quantity,
		Notes:    notes,
	}); err != nil {
		return nil, fmt.Errorf("update order item: %w", err)
	}

	updated, err := s.repriceOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// RemoveItem deletes an item from a PENDING order. The last remaining
// item cannot be removed; cancel the order instead.
func (s *OrderService) RemoveItem(ctx context.Context, req RemoveItemRequest) (*database.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.removeItemTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventOrderItemsChanged, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return order, nil
}

func (s *OrderService) removeItemTx(ctx context.Context, req RemoveItemRequest) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.RestaurantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enum.OrderStatusPending {
		return nil, ErrItemRemoveNotPending
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{
		ID:      req.OrderItemID,
		OrderID: order.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	count, err := store.CountOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("count order items: %w", err)
	}
	if count <= 1 {
		return nil, ErrLastOrderItem
	}

	if err := store.DeleteOrderItemModifiers(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("delete order item modifiers: %w", err)
	}
	if err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{
		ID:      item.ID,
		OrderID: order.ID,
	}); err != nil {
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	updated, err := s.repriceOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// lockEditableOrder loads the order with a row lock and checks that items
// may still be changed: the order is in an editable status and no voucher
// is currently applied.
func (s *OrderService) lockEditableOrder(ctx context.Context, store OrderStore, restaurantID, orderID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if !isEditableStatus(order.Status) {
		return database.Order{}, ErrOrderNotEditable
	}

	if _, err := store.GetVoucherRedemptionByOrder(ctx, order.ID); err == nil {
		return database.Order{}, ErrVoucherOnOrder
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, fmt.Errorf("get voucher redemption: %w", err)
	}

	return order, nil
}

// repriceOrder recomputes totals from the order's current items and
// persists them. Tip is kept as-is; no voucher is applied at this point.
func (s *OrderService) repriceOrder(ctx context.Context, store OrderStore, order database.Order) (*database.Order, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		if item.Status == enum.OrderItemStatusCancelled {
			continue
		}
		mods, err := store.ListOrderItemModifiersByOrderItem(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list order item modifiers: %w", err)
		}
		line := pricing.Line{
			UnitPrice: numericToDecimal(item.UnitPrice),
			Quantity:  item.Quantity,
		}
		for _, mod := range mods {
			line.ModifierPrices = append(line.ModifierPrices, numericToDecimal(mod.UnitPrice))
		}
		lines = append(lines, line)
	}

	restaurant, err := store.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}

	totals, err := pricing.Calculate(lines, numericToDecimal(restaurant.TaxRate), numericToDecimal(order.TipAmount), nil)
	if err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:          order.ID,
		Subtotal:    decimalToNumeric(totals.Subtotal),
		TaxAmount:   decimalToNumeric(totals.Tax),
		TotalAmount: decimalToNumeric(totals.Total),
	})
	if err != nil {
		return nil, fmt.Errorf("update order totals: %w", err)
	}
	return &updated, nil
}
