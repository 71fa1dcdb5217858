package service

import "github.com/tavolo-pos/api/internal/enum"

// allowedTransitions defines valid order status transitions.
// Key is current status, value is the set of statuses it can transition to.
// COMPLETED and CANCELLED are terminal; CANCELLED is not reachable from
// SERVED, only COMPLETED is.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusServed, enum.OrderStatusCancelled},
	enum.OrderStatusServed:    {enum.OrderStatusCompleted},
}

// allowedItemTransitions mirrors the order machine at item granularity.
var allowedItemTransitions = map[string][]string{
	enum.OrderItemStatusPending:   {enum.OrderItemStatusPreparing, enum.OrderItemStatusCancelled},
	enum.OrderItemStatusPreparing: {enum.OrderItemStatusReady, enum.OrderItemStatusCancelled},
	enum.OrderItemStatusReady:     {enum.OrderItemStatusServed, enum.OrderItemStatusCancelled},
}

func canTransition(transitions map[string][]string, current, next string) bool {
	for _, s := range transitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

func isTerminalStatus(status string) bool {
	return status == enum.OrderStatusCompleted || status == enum.OrderStatusCancelled
}

// isEditableStatus reports whether order items may still be mutated.
func isEditableStatus(status string) bool {
	switch status {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady:
		return true
	}
	return false
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusServed, enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func isValidItemStatus(s string) bool {
	switch s {
	case enum.OrderItemStatusPending, enum.OrderItemStatusPreparing, enum.OrderItemStatusReady,
		enum.OrderItemStatusServed, enum.OrderItemStatusCancelled:
		return true
	}
	return false
}

// canAdvanceKitchen reports whether the role may push an order or item into
// PREPARING or READY.
func canAdvanceKitchen(role string) bool {
	switch role {
	case enum.UserRoleKitchen, enum.UserRoleManager, enum.UserRoleAdmin:
		return true
	}
	return false
}

// deriveOrderStatus folds the item-status multiset into an order status
// promotion: all items READY or SERVED promotes the order to READY, all
// SERVED promotes it to SERVED. Cancelled items are ignored. Returns false
// when the items do not force a promotion.
func deriveOrderStatus(itemStatuses []string) (string, bool) {
	allServed := true
	allReadyOrServed := true
	active := 0

	for _, s := range itemStatuses {
		if s == enum.OrderItemStatusCancelled {
			continue
		}
		active++
		if s != enum.OrderItemStatusServed {
			allServed = false
		}
		if s != enum.OrderItemStatusReady && s != enum.OrderItemStatusServed {
			allReadyOrServed = false
		}
	}

	if active == 0 {
		return "", false
	}
	if allServed {
		return enum.OrderStatusServed, true
	}
	if allReadyOrServed {
		return enum.OrderStatusReady, true
	}
	return "", false
}

// orderStatusRank orders the forward path so derived promotions never move
// an order backwards.
var orderStatusRank = map[string]int{
	enum.OrderStatusPending:   0,
	enum.OrderStatusPreparing: 1,
	enum.OrderStatusReady:     2,
	enum.OrderStatusServed:    3,
	enum.OrderStatusCompleted: 4,
}
