package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
)

// KitchenStore defines the DB methods the kitchen projection reads.
type KitchenStore interface {
	ListActiveOrders(ctx context.Context, restaurantID uuid.UUID) ([]database.ListActiveOrdersRow, error)
	ListKitchenItems(ctx context.Context, orderID uuid.UUID) ([]database.ListKitchenItemsRow, error)
}

// KitchenOrder is one active order as the kitchen display sees it.
type KitchenOrder struct {
	OrderID        uuid.UUID     `json:"order_id"`
	OrderNumber    string        `json:"order_number"`
	OrderType      string        `json:"order_type"`
	Status         string        `json:"status"`
	TableNumber    *int32        `json:"table_number,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	AgeSeconds     int64         `json:"age_seconds"`
	EstPrepMinutes int32         `json:"est_prep_minutes"`
	Overdue        bool          `json:"overdue"`
	Items          []KitchenItem `json:"items"`
}

// KitchenItem is one line of a kitchen order.
type KitchenItem struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Name        string    `json:"name"`
	Quantity    int32     `json:"quantity"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

// KitchenService projects active orders into the kitchen display read model.
// It only reads, so it runs against the pool without a transaction.
type KitchenService struct {
	store KitchenStore
	now   func() time.Time
}

// NewKitchenService creates a new KitchenService.
func NewKitchenService(store KitchenStore) *KitchenService {
	return &KitchenService{store: store, now: time.Now}
}

// ActiveOrders returns the restaurant's non-terminal orders oldest first,
// each annotated with its age, the longest prep time among its items, and
// an overdue flag once the age exceeds that estimate.
func (s *KitchenService) ActiveOrders(ctx context.Context, restaurantID uuid.UUID) ([]KitchenOrder, error) {
	rows, err := s.store.ListActiveOrders(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}

	now := s.now()
	orders := make([]KitchenOrder, 0, len(rows))
	for _, row := range rows {
		items, err := s.store.ListKitchenItems(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("list kitchen items: %w", err)
		}

		ko := KitchenOrder{
			OrderID:     row.ID,
			OrderNumber: row.OrderNumber,
			OrderType:   row.OrderType,
			Status:      row.Status,
			AgeSeconds:  int64(now.Sub(row.CreatedAt).Seconds()),
			Items:       make([]KitchenItem, 0, len(items)),
		}
		if row.TableNumber.Valid {
			n := row.TableNumber.Int32
			ko.TableNumber = &n
		}
		if row.Notes.Valid {
			ko.Notes = row.Notes.String
		}

		for _, item := range items {
			if item.PrepTimeMinutes > ko.EstPrepMinutes {
				ko.EstPrepMinutes = item.PrepTimeMinutes
			}
			ki := KitchenItem{
				OrderItemID: item.ID,
				Name:        item.MenuItemName,
				Quantity:    item.Quantity,
				Status:      item.Status,
			}
			if item.Notes.Valid {
				ki.Notes = item.Notes.String
			}
			ko.Items = append(ko.Items, ki)
		}

		// Served orders are done from the kitchen's perspective; only
		// in-flight ones can go overdue.
		if ko.Status != enum.OrderStatusServed && ko.EstPrepMinutes > 0 {
			ko.Overdue = ko.AgeSeconds > int64(ko.EstPrepMinutes)*60
		}

		orders = append(orders, ko)
	}
	return orders, nil
}
