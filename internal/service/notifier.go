package service

import "github.com/google/uuid"

// Notifier fans lifecycle events out to the restaurant's realtime channel.
// Publishing is best-effort and must never sit on the transaction path:
// services call it only after a successful commit.
type Notifier interface {
	Publish(restaurantID uuid.UUID, event string, payload any)
}

// Event names pushed to the realtime channel.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderItemsChanged  = "order.items_changed"
	EventVoucherApplied     = "order.voucher_applied"
	EventVoucherRemoved     = "order.voucher_removed"
)

// StatusChangedPayload is the wire shape of EventOrderStatusChanged.
type StatusChangedPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	TableNumber *int32    `json:"table_number,omitempty"`
}

// NopNotifier discards events; used when no hub is wired (seed, tests).
type NopNotifier struct{}

func (NopNotifier) Publish(uuid.UUID, string, any) {}
