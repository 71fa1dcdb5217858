package service

import "errors"

// Validation errors: caller input is wrong, never retried.
var (
	ErrEmptyItems               = errors.New("items are required")
	ErrInvalidOrderType         = errors.New("invalid order_type")
	ErrInvalidQuantity          = errors.New("quantity must be >= 1")
	ErrInvalidMenuItemID        = errors.New("invalid menu_item_id")
	ErrInvalidModifierID        = errors.New("invalid modifier_id")
	ErrInvalidTableID           = errors.New("invalid table_id")
	ErrInvalidCustomerID        = errors.New("invalid customer_id")
	ErrInvalidTipAmount         = errors.New("invalid tip_amount")
	ErrInvalidStatus            = errors.New("invalid status")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrInvalidModifierSelection = errors.New("modifier does not belong to menu item")
)

// NotFound errors: a referenced entity is absent in the caller's tenant.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrModifierNotFound  = errors.New("modifier not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrVoucherNotFound   = errors.New("voucher not found")
	ErrGiftCardNotFound  = errors.New("gift card not found")
)

// Business rule violations: valid input, but the state machine or a
// monetary invariant forbids the operation.
var (
	ErrMenuItemUnavailable    = errors.New("menu item is not available")
	ErrModifierUnavailable    = errors.New("modifier is not available")
	ErrInvalidStateTransition = errors.New("invalid status transition")
	ErrKitchenRoleRequired    = errors.New("kitchen, manager or admin role required")
	ErrOrderNotEditable       = errors.New("order can no longer be modified")
	ErrItemRemoveNotPending   = errors.New("items can only be removed while the order is PENDING")
	ErrLastOrderItem          = errors.New("cannot remove the last item of an order")
	ErrVoucherAlreadyApplied  = errors.New("order already has a voucher applied")
	ErrVoucherOnOrder         = errors.New("remove the voucher before changing order items")
	ErrVoucherInactive        = errors.New("voucher is inactive")
	ErrVoucherNotStarted      = errors.New("voucher is not active yet")
	ErrVoucherExpired         = errors.New("voucher has expired")
	ErrVoucherExhausted       = errors.New("voucher usage limit reached")
	ErrMinimumPurchaseNotMet  = errors.New("order subtotal below voucher minimum purchase")
	ErrVoucherExceedsSubtotal = errors.New("voucher value exceeds the order subtotal")
	ErrNoVoucherApplied       = errors.New("order has no voucher applied")
	ErrGiftCardInactive       = errors.New("gift card is inactive")
	ErrGiftCardExpired        = errors.New("gift card has expired")
	ErrInsufficientBalance    = errors.New("insufficient gift card balance")
)

// Concurrency and store errors: retryable by the caller.
var (
	ErrOrderNumberConflict    = errors.New("order number already taken, retry the request")
	ErrConcurrentModification = errors.New("order was modified concurrently, retry the request")
	ErrStoreTimeout           = errors.New("store operation timed out")
)
