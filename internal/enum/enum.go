package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	OrderItemStatusPending   = "PENDING"
	OrderItemStatusPreparing = "PREPARING"
	OrderItemStatusReady     = "READY"
	OrderItemStatusServed    = "SERVED"
	OrderItemStatusCancelled = "CANCELLED"
)

const (
	TableStatusAvailable   = "AVAILABLE"
	TableStatusOccupied    = "OCCUPIED"
	TableStatusReserved    = "RESERVED"
	TableStatusMaintenance = "MAINTENANCE"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusRefunded  = "REFUNDED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
	UserRoleWaiter  = "WAITER"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeout  = "TAKEOUT"
	OrderTypeDelivery = "DELIVERY"
	OrderTypeOnline   = "ONLINE"
)

const (
	GiftCardTxIssue  = "ISSUE"
	GiftCardTxLoad   = "LOAD"
	GiftCardTxRedeem = "REDEEM"
	GiftCardTxRefund = "REFUND"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodGiftCard = "GIFT_CARD"
	PaymentMethodQRIS     = "QRIS"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
	DiscountTypeFreeItem   = "FREE_ITEM"
)
