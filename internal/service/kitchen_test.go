package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/database"
)

type mockKitchenStore struct {
	listActiveOrdersFn func(ctx context.Context, restaurantID uuid.UUID) ([]database.ListActiveOrdersRow, error)
	listKitchenItemsFn func(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenItemsRow, error)
}

func (m *mockKitchenStore) ListActiveOrders(ctx context.Context, restaurantID uuid.UUID) ([]database.ListActiveOrdersRow, error) {
	return m.listActiveOrdersFn(ctx, restaurantID)
}
func (m *mockKitchenStore) ListKitchenItems(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenItemsRow, error) {
	return m.listKitchenItemsFn(ctx, orderID)
}

func kitchenRow(restaurantID uuid.UUID, status string, createdAt time.Time) database.ListActiveOrdersRow {
	return database.ListActiveOrdersRow{
		Order: database.Order{
			ID:           uuid.New(),
			RestaurantID: restaurantID,
			OrderNumber:  "TVL-20260314-001",
			OrderType:    "DINE_IN",
			Status:       status,
			CreatedAt:    createdAt,
		},
		TableNumber: pgtype.Int4{Int32: 6, Valid: true},
	}
}

func kitchenItem(name string, prepMinutes int32, status string) database.ListKitchenItemsRow {
	return database.ListKitchenItemsRow{
		OrderItem: database.OrderItem{
			ID:       uuid.New(),
			Quantity: 1,
			Status:   status,
		},
		MenuItemName:    name,
		PrepTimeMinutes: prepMinutes,
	}
}

func TestActiveOrders_Projection(t *testing.T) {
	restaurantID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	row := kitchenRow(restaurantID, "PREPARING", now.Add(-10*time.Minute))

	store := &mockKitchenStore{
		listActiveOrdersFn: func(ctx context.Context, rid uuid.UUID) ([]database.ListActiveOrdersRow, error) {
			return []database.ListActiveOrdersRow{row}, nil
		},
		listKitchenItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenItemsRow, error) {
			return []database.ListKitchenItemsRow{
				kitchenItem("Carbonara", 15, "PREPARING"),
				kitchenItem("Bruschetta", 5, "READY"),
			}, nil
		},
	}
	svc := NewKitchenService(store)
	svc.now = func() time.Time { return now }

	orders, err := svc.ActiveOrders(context.Background(), restaurantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}

	got := orders[0]
	if got.AgeSeconds != 600 {
		t.Errorf("age = %d, want 600", got.AgeSeconds)
	}
	// Estimate is the longest prep time among the items, not the sum.
	if got.EstPrepMinutes != 15 {
		t.Errorf("est prep = %d, want 15", got.EstPrepMinutes)
	}
	if got.Overdue {
		t.Error("10 minutes against a 15 minute estimate is not overdue")
	}
	if got.TableNumber == nil || *got.TableNumber != 6 {
		t.Errorf("table number = %v, want 6", got.TableNumber)
	}
	if len(got.Items) != 2 {
		t.Errorf("got %d items, want 2", len(got.Items))
	}
}

func TestActiveOrders_OverdueFlag(t *testing.T) {
	restaurantID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	row := kitchenRow(restaurantID, "PREPARING", now.Add(-20*time.Minute))

	store := &mockKitchenStore{
		listActiveOrdersFn: func(ctx context.Context, rid uuid.UUID) ([]database.ListActiveOrdersRow, error) {
			return []database.ListActiveOrdersRow{row}, nil
		},
		listKitchenItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenItemsRow, error) {
			return []database.ListKitchenItemsRow{kitchenItem("Carbonara", 15, "PREPARING")}, nil
		},
	}
	svc := NewKitchenService(store)
	svc.now = func() time.Time { return now }

	orders, err := svc.ActiveOrders(context.Background(), restaurantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !orders[0].Overdue {
		t.Error("20 minutes against a 15 minute estimate must be overdue")
	}
}

func TestActiveOrders_ServedNeverOverdue(t *testing.T) {
	restaurantID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	row := kitchenRow(restaurantID, "SERVED", now.Add(-2*time.Hour))

	store := &mockKitchenStore{
		listActiveOrdersFn: func(ctx context.Context, rid uuid.UUID) ([]database.ListActiveOrdersRow, error) {
			return []database.ListActiveOrdersRow{row}, nil
		},
		listKitchenItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenItemsRow, error) {
			return []database.ListKitchenItemsRow{kitchenItem("Carbonara", 15, "SERVED")}, nil
		},
	}
	svc := NewKitchenService(store)
	svc.now = func() time.Time { return now }

	orders, err := svc.ActiveOrders(context.Background(), restaurantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders[0].Overdue {
		t.Error("served orders are finished work for the kitchen")
	}
}
