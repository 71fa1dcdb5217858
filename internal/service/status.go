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
)

// UpdateStatusRequest moves an order to a new status.
type UpdateStatusRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	Status       string
	Actor        Actor
}

// UpdateItemStatusRequest moves a single order item to a new status.
type UpdateItemStatusRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	OrderItemID  uuid.UUID
	Status       string
	Actor        Actor
}

// UpdateStatus transitions the order through the lifecycle machine.
// PENDING→PREPARING→READY→SERVED→COMPLETED, with CANCELLED reachable from
// any pre-SERVED status. PREPARING and READY require a kitchen-side role.
// Item statuses cascade along with the order, and a terminal transition
// frees the table when no other active order holds it.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*database.Order, error) {
	if !isValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, oldStatus, tableNumber, err := s.updateStatusTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventOrderStatusChanged, StatusChangedPayload{
		OrderID:     order.ID,
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
		TableNumber: tableNumber,
	})
	return order, nil
}

func (s *OrderService) updateStatusTx(ctx context.Context, req UpdateStatusRequest) (*database.Order, string, *int32, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
		ID:           req.OrderID,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil, ErrOrderNotFound
		}
		return nil, "", nil, fmt.Errorf("get order: %w", err)
	}

	oldStatus := order.Status
	if !canTransition(allowedTransitions, oldStatus, req.Status) {
		return nil, "", nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, oldStatus, req.Status)
	}
	if requiresKitchenRole(req.Status) && !canAdvanceKitchen(req.Actor.Role) {
		return nil, "", nil, ErrKitchenRoleRequired
	}

	completedAt := pgtype.Timestamptz{}
	if isTerminalStatus(req.Status) {
		completedAt = pgtype.Timestamptz{Time: s.now().UTC(), Valid: true}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:          order.ID,
		Status:      req.Status,
		FromStatus:  oldStatus,
		CompletedAt: completedAt,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil, ErrConcurrentModification
		}
		return nil, "", nil, fmt.Errorf("update order status: %w", err)
	}

	// Items track the order for the shared kitchen transitions. Only items
	// still at the old status move; individually advanced items keep their
	// progress.
	switch req.Status {
	case enum.OrderStatusPreparing, enum.OrderStatusReady, enum.OrderStatusServed:
		if err := store.CascadeOrderItemStatus(ctx, database.CascadeOrderItemStatusParams{
			OrderID:    order.ID,
			Status:     req.Status,
			FromStatus: oldStatus,
		}); err != nil {
			return nil, "", nil, fmt.Errorf("cascade item status: %w", err)
		}
	case enum.OrderStatusCancelled:
		for _, from := range []string{enum.OrderItemStatusPending, enum.OrderItemStatusPreparing, enum.OrderItemStatusReady} {
			if err := store.CascadeOrderItemStatus(ctx, database.CascadeOrderItemStatusParams{
				OrderID:    order.ID,
				Status:     enum.OrderItemStatusCancelled,
				FromStatus: from,
			}); err != nil {
				return nil, "", nil, fmt.Errorf("cascade item status: %w", err)
			}
		}
	}

	var tableNumber *int32
	if order.TableID.Valid {
		table, err := store.GetTableForUpdate(ctx, database.GetTableForUpdateParams{
			ID:           order.TableID.Bytes,
			RestaurantID: req.RestaurantID,
		})
		if err != nil {
			return nil, "", nil, fmt.Errorf("get table: %w", err)
		}
		tableNumber = &table.Number

		if isTerminalStatus(req.Status) && table.Status == enum.TableStatusOccupied {
			active, err := store.CountActiveOrdersForTable(ctx, database.CountActiveOrdersForTableParams{
				TableID:        table.ID,
				ExcludeOrderID: order.ID,
			})
			if err != nil {
				return nil, "", nil, fmt.Errorf("count active orders: %w", err)
			}
			if active == 0 {
				if err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
					ID:     table.ID,
					Status: enum.TableStatusAvailable,
				}); err != nil {
					return nil, "", nil, fmt.Errorf("release table: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, oldStatus, tableNumber, nil
}

// UpdateItemStatus advances one item through the item machine. When every
// remaining item reaches READY or SERVED the order is promoted to match,
// never moved backwards.
func (s *OrderService) UpdateItemStatus(ctx context.Context, req UpdateItemStatusRequest) (*database.OrderItem, error) {
	if !isValidItemStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, promoted, err := s.updateItemStatusTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventOrderItemsChanged, map[string]any{
		"order_id":      req.OrderID,
		"order_item_id": item.ID,
		"item_status":   item.Status,
	})
	if promoted != nil {
		s.notifier.Publish(req.RestaurantID, EventOrderStatusChanged, StatusChangedPayload{
			OrderID:   promoted.ID,
			OldStatus: promoted.oldStatus,
			NewStatus: promoted.Status,
		})
	}
	return item, nil
}

type promotedOrder struct {
	database.Order
	oldStatus string
}

func (s *OrderService) updateItemStatusTx(ctx context.Context, req UpdateItemStatusRequest) (*database.OrderItem, *promotedOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
		ID:           req.OrderID,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("get order: %w", err)
	}
	if isTerminalStatus(order.Status) {
		return nil, nil, ErrOrderNotEditable
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{
		ID:      req.OrderItemID,
		OrderID: order.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrOrderItemNotFound
		}
		return nil, nil, fmt.Errorf("get order item: %w", err)
	}

	if !canTransition(allowedItemTransitions, item.Status, req.Status) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, item.Status, req.Status)
	}
	if requiresKitchenRole(req.Status) && !canAdvanceKitchen(req.Actor.Role) {
		return nil, nil, ErrKitchenRoleRequired
	}

	updated, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
		ID:         item.ID,
		OrderID:    order.ID,
		Status:     req.Status,
		FromStatus: item.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrConcurrentModification
		}
		return nil, nil, fmt.Errorf("update item status: %w", err)
	}

	var promoted *promotedOrder
	statuses, err := store.ListOrderItemStatuses(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list item statuses: %w", err)
	}
	if derived, ok := deriveOrderStatus(statuses); ok && orderStatusRank[derived] > orderStatusRank[order.Status] {
		newOrder, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     derived,
			FromStatus: order.Status,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, ErrConcurrentModification
			}
			return nil, nil, fmt.Errorf("promote order status: %w", err)
		}
		promoted = &promotedOrder{Order: newOrder, oldStatus: order.Status}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, promoted, nil
}

// requiresKitchenRole marks the transitions owned by the kitchen display.
func requiresKitchenRole(status string) bool {
	return status == enum.OrderStatusPreparing || status == enum.OrderStatusReady
}
