package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Restaurant struct {
	ID          uuid.UUID
	Name        string
	OrderPrefix string
	TaxRate     pgtype.Numeric
	CreatedAt   time.Time
}

type User struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
}

type Table struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Number       int32
	Capacity     int32
	Status       string
}

type Customer struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	FullName     string
	Phone        pgtype.Text
	CreatedAt    time.Time
}

type MenuItem struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	Name            string
	Price           pgtype.Numeric
	IsAvailable     bool
	PrepTimeMinutes int32
}

type ModifierGroup struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	Name       string
}

type Modifier struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
}

type Order struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	OrderNumber  string
	OrderType    string
	Status       string
	TableID      pgtype.UUID
	CustomerID   pgtype.UUID
	Subtotal     pgtype.Numeric
	TaxAmount    pgtype.Numeric
	TipAmount    pgtype.Numeric
	TotalAmount  pgtype.Numeric
	Notes        pgtype.Text
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  pgtype.Timestamptz
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	Notes      pgtype.Text
	Status     string
}

type OrderItemModifier struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID
	ModifierID  uuid.UUID
	UnitPrice   pgtype.Numeric
}

type Voucher struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Code         string
	DiscountType string
	Value        pgtype.Numeric
	MinPurchase  pgtype.Numeric
	IsActive     bool
	StartDate    pgtype.Timestamptz
	ExpiryDate   pgtype.Timestamptz
	UsageLimit   pgtype.Int4
	UsageCount   int32
}

type VoucherRedemption struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	VoucherID  uuid.UUID
	RedeemedBy uuid.UUID
	CreatedAt  time.Time
}

type GiftCard struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Code           string
	CurrentBalance pgtype.Numeric
	IsActive       bool
	ExpiryDate     pgtype.Timestamptz
	CreatedAt      time.Time
}

type GiftCardTransaction struct {
	ID              uuid.UUID
	GiftCardID      uuid.UUID
	TransactionType string
	Amount          pgtype.Numeric
	PaymentID       pgtype.UUID
	PerformedBy     pgtype.UUID
	CreatedAt       time.Time
}

type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	PaymentMethod string
	Amount        pgtype.Numeric
	Status        string
	ProcessedBy   uuid.UUID
	ProcessedAt   time.Time
}
