package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavolo-pos/api/internal/database"
)

// statusStore wires a mockOrderStore around a single in-flight order.
func statusStore(order database.Order) *mockOrderStore {
	return &mockOrderStore{
		getOrderForUpdateFn: func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
			if arg.ID == order.ID && arg.RestaurantID == order.RestaurantID {
				return order, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			if arg.FromStatus != order.Status {
				return database.Order{}, pgx.ErrNoRows
			}
			updated := order
			updated.Status = arg.Status
			updated.CompletedAt = arg.CompletedAt
			return updated, nil
		},
		cascadeOrderItemStatusFn: func(ctx context.Context, arg database.CascadeOrderItemStatusParams) error {
			return nil
		},
	}
}

func pendingOrder(restaurantID uuid.UUID) database.Order {
	return database.Order{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		OrderNumber:  "TVL-20260314-001",
		OrderType:    "DINE_IN",
		Status:       "PENDING",
		Subtotal:     makeNumeric("30.00"),
		TaxAmount:    makeNumeric("2.40"),
		TotalAmount:  makeNumeric("32.40"),
		CreatedBy:    uuid.New(),
	}
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	svc, tx := newTestService(statusStore(order))

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != "PREPARING" {
		t.Errorf("status = %q, want PREPARING", updated.Status)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	svc, _ := newTestService(statusStore(order))

	// PENDING cannot jump straight to SERVED.
	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "SERVED",
		Actor:        Actor{UserID: uuid.New(), Role: "WAITER"},
	})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}
}

func TestUpdateStatus_TerminalIsFinal(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "COMPLETED"
	svc, _ := newTestService(statusStore(order))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "MANAGER"},
	})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}
}

func TestUpdateStatus_ServedCannotBeCancelled(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "SERVED"
	svc, _ := newTestService(statusStore(order))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "CANCELLED",
		Actor:        Actor{UserID: uuid.New(), Role: "MANAGER"},
	})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}
}

func TestUpdateStatus_KitchenRoleRequired(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	svc, _ := newTestService(statusStore(order))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "WAITER"},
	})
	if !errors.Is(err, ErrKitchenRoleRequired) {
		t.Fatalf("expected ErrKitchenRoleRequired, got: %v", err)
	}
}

func TestUpdateStatus_ManagerMayAdvanceKitchen(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	svc, _ := newTestService(statusStore(order))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "MANAGER"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatus_ConcurrentModification(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	store := statusStore(order)
	// Simulate another transaction winning the conditional update.
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got: %v", err)
	}
}

func TestUpdateStatus_CompletedSetsCompletedAt(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "SERVED"
	svc, _ := newTestService(statusStore(order))

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "COMPLETED",
		Actor:        Actor{UserID: uuid.New(), Role: "CASHIER"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.CompletedAt.Valid {
		t.Error("completed_at not set on terminal transition")
	}
}

func TestUpdateStatus_CancelCascadesItems(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "PREPARING"

	var cascaded []string
	store := statusStore(order)
	store.cascadeOrderItemStatusFn = func(ctx context.Context, arg database.CascadeOrderItemStatusParams) error {
		if arg.Status != "CANCELLED" {
			t.Errorf("cascade target = %q, want CANCELLED", arg.Status)
		}
		cascaded = append(cascaded, arg.FromStatus)
		return nil
	}
	svc, _ := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "CANCELLED",
		Actor:        Actor{UserID: uuid.New(), Role: "MANAGER"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cascaded) != 3 {
		t.Errorf("cascaded from %v, want PENDING, PREPARING and READY", cascaded)
	}
}

func TestUpdateStatus_TerminalReleasesTable(t *testing.T) {
	restaurantID := uuid.New()
	tableID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "SERVED"
	order.TableID = pgUUID(tableID)

	var released string
	store := statusStore(order)
	store.getTableForUpdateFn = func(ctx context.Context, arg database.GetTableForUpdateParams) (database.Table, error) {
		return database.Table{ID: tableID, RestaurantID: restaurantID, Number: 9, Status: "OCCUPIED"}, nil
	}
	store.countActiveOrdersForTableFn = func(ctx context.Context, arg database.CountActiveOrdersForTableParams) (int64, error) {
		if arg.ExcludeOrderID != order.ID {
			t.Errorf("count must exclude the transitioning order")
		}
		return 0, nil
	}
	store.updateTableStatusFn = func(ctx context.Context, arg database.UpdateTableStatusParams) error {
		released = arg.Status
		return nil
	}
	svc, _ := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "COMPLETED",
		Actor:        Actor{UserID: uuid.New(), Role: "CASHIER"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != "AVAILABLE" {
		t.Errorf("table status set to %q, want AVAILABLE", released)
	}
}

func TestUpdateStatus_TableHeldByAnotherOrder(t *testing.T) {
	restaurantID := uuid.New()
	tableID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "SERVED"
	order.TableID = pgUUID(tableID)

	store := statusStore(order)
	store.getTableForUpdateFn = func(ctx context.Context, arg database.GetTableForUpdateParams) (database.Table, error) {
		return database.Table{ID: tableID, RestaurantID: restaurantID, Number: 9, Status: "OCCUPIED"}, nil
	}
	store.countActiveOrdersForTableFn = func(ctx context.Context, arg database.CountActiveOrdersForTableParams) (int64, error) {
		return 1, nil
	}
	store.updateTableStatusFn = func(ctx context.Context, arg database.UpdateTableStatusParams) error {
		t.Error("table must stay occupied while another active order holds it")
		return nil
	}
	svc, _ := newTestService(store)

	if _, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		Status:       "COMPLETED",
		Actor:        Actor{UserID: uuid.New(), Role: "CASHIER"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	restaurantID := uuid.New()
	svc, _ := newTestService(statusStore(pendingOrder(restaurantID)))

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      uuid.New(),
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

// =====================
// Item-level transitions
// =====================

func itemStatusStore(order database.Order, item database.OrderItem) *mockOrderStore {
	store := statusStore(order)
	store.getOrderItemFn = func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
		if arg.ID == item.ID && arg.OrderID == order.ID {
			return item, nil
		}
		return database.OrderItem{}, pgx.ErrNoRows
	}
	store.updateOrderItemStatusFn = func(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
		if arg.OrderID != order.ID || arg.FromStatus != item.Status {
			return database.OrderItem{}, pgx.ErrNoRows
		}
		updated := item
		updated.Status = arg.Status
		return updated, nil
	}
	store.listOrderItemStatusesFn = func(ctx context.Context, orderID uuid.UUID) ([]string, error) {
		return []string{"PENDING"}, nil
	}
	return store
}

func TestUpdateItemStatus_ValidTransition(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	item := database.OrderItem{ID: uuid.New(), OrderID: order.ID, Quantity: 1, Status: "PENDING"}
	svc, _ := newTestService(itemStatusStore(order, item))

	updated, err := svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		OrderItemID:  item.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != "PREPARING" {
		t.Errorf("item status = %q, want PREPARING", updated.Status)
	}
}

func TestUpdateItemStatus_ConcurrentTransitionDetected(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	item := database.OrderItem{ID: uuid.New(), OrderID: order.ID, Quantity: 1, Status: "PENDING"}

	// Another transaction moves the item between the read and the write:
	// the guarded update matches no row.
	store := itemStatusStore(order, item)
	store.updateOrderItemStatusFn = func(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	_, err := svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		OrderItemID:  item.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got: %v", err)
	}
}

func TestUpdateItemStatus_AllItemsReadyPromotesOrder(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "PREPARING"
	item := database.OrderItem{ID: uuid.New(), OrderID: order.ID, Quantity: 1, Status: "PREPARING"}

	var promotedTo string
	store := itemStatusStore(order, item)
	store.listOrderItemStatusesFn = func(ctx context.Context, orderID uuid.UUID) ([]string, error) {
		return []string{"READY", "READY", "CANCELLED"}, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		promotedTo = arg.Status
		updated := order
		updated.Status = arg.Status
		return updated, nil
	}
	svc, _ := newTestService(store)

	if _, err := svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		OrderItemID:  item.ID,
		Status:       "READY",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promotedTo != "READY" {
		t.Errorf("order promoted to %q, want READY", promotedTo)
	}
}

func TestUpdateItemStatus_NoBackwardPromotion(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "SERVED"
	item := database.OrderItem{ID: uuid.New(), OrderID: order.ID, Quantity: 1, Status: "READY"}

	store := itemStatusStore(order, item)
	store.listOrderItemStatusesFn = func(ctx context.Context, orderID uuid.UUID) ([]string, error) {
		return []string{"READY", "SERVED"}, nil // derives READY, below SERVED
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		t.Errorf("order must not be demoted from SERVED to %s", arg.Status)
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	if _, err := svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		OrderItemID:  item.ID,
		Status:       "SERVED",
		Actor:        Actor{UserID: uuid.New(), Role: "WAITER"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateItemStatus_TerminalOrderRejected(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "CANCELLED"
	item := database.OrderItem{ID: uuid.New(), OrderID: order.ID, Quantity: 1, Status: "PENDING"}
	svc, _ := newTestService(itemStatusStore(order, item))

	_, err := svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		OrderItemID:  item.ID,
		Status:       "PREPARING",
		Actor:        Actor{UserID: uuid.New(), Role: "KITCHEN"},
	})
	if !errors.Is(err, ErrOrderNotEditable) {
		t.Fatalf("expected ErrOrderNotEditable, got: %v", err)
	}
}
