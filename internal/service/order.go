package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/pricing"
)

// storeOpTimeout bounds every transaction so a wedged store surfaces as a
// retryable ErrStoreTimeout instead of a hung request.
const storeOpTimeout = 5 * time.Second

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.GetRestaurantRow, error)
	GetNextOrderSequence(ctx context.Context, arg database.GetNextOrderSequenceParams) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	GetModifierForOrder(ctx context.Context, id uuid.UUID) (database.GetModifierForOrderRow, error)
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	GetTableForUpdate(ctx context.Context, arg database.GetTableForUpdateParams) (database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) error
	CountActiveOrdersForTable(ctx context.Context, arg database.CountActiveOrdersForTableParams) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error
	DeleteOrderItemModifiers(ctx context.Context, orderItemID uuid.UUID) error
	CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	CascadeOrderItemStatus(ctx context.Context, arg database.CascadeOrderItemStatusParams) error
	ListOrderItemStatuses(ctx context.Context, orderID uuid.UUID) ([]string, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemModifier, error)
	GetVoucherRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Actor identifies the authenticated staff member performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	RestaurantID uuid.UUID
	CreatedBy    uuid.UUID
	OrderType    string
	TableID      string
	CustomerID   string
	Notes        string
	Tip          string
	Items        []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	MenuItemID  string
	Quantity    int32
	Notes       string
	ModifierIDs []string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []OrderItemResult
}

// OrderItemResult is an item with its modifiers.
type OrderItemResult struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	notifier Notifier
	now      func() time.Time
	timeout  time.Duration
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, notifier Notifier) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		notifier: notifier,
		now:      time.Now,
		timeout:  storeOpTimeout,
	}
}

// pricedItem holds a prepared order item and its priced modifiers.
type pricedItem struct {
	params    database.CreateOrderItemParams
	modifiers []pricedModifier
	line      pricing.Line
}

type pricedModifier struct {
	modifierID uuid.UUID
	unitPrice  decimal.Decimal
}

// CreateOrder validates, prices, and creates an order atomically.
// Catalog prices are snapshotted onto the order at this instant; later
// catalog edits never change the order. An order number collision (two
// transactions racing for the same sequence) fails with
// ErrOrderNumberConflict; the caller retries.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tip := decimal.Zero
	if req.Tip != "" {
		t, err := decimal.NewFromString(req.Tip)
		if err != nil || t.IsNegative() {
			return nil, ErrInvalidTipAmount
		}
		tip = t
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.createOrderTx(ctx, req, tip)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventOrderCreated, map[string]any{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"status":       result.Order.Status,
		"total_amount": numericToDecimal(result.Order.TotalAmount).StringFixed(2),
	})
	return result, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, tip decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	restaurant, err := store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	taxRate := numericToDecimal(restaurant.TaxRate)

	// Validate table, locking its row so the occupancy write below cannot
	// race a concurrent create or terminal transition on the same table.
	tableID := pgtype.UUID{}
	var table database.Table
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		table, err = store.GetTableForUpdate(ctx, database.GetTableForUpdateParams{
			ID:           tid,
			RestaurantID: req.RestaurantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	customerID := pgtype.UUID{}
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, ErrInvalidCustomerID
		}
		if _, err := store.GetCustomer(ctx, database.GetCustomerParams{
			ID:           cid,
			RestaurantID: req.RestaurantID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCustomerNotFound
			}
			return nil, fmt.Errorf("get customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	// Validate and price each item against the catalog.
	items := make([]pricedItem, 0, len(req.Items))
	lines := make([]pricing.Line, 0, len(req.Items))
	for i, item := range req.Items {
		pi, err := s.priceItem(ctx, store, req.RestaurantID, item)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items = append(items, pi)
		lines = append(lines, pi.line)
	}

	totals, err := pricing.Calculate(lines, taxRate, tip, nil)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.nextOrderNumber(ctx, store, restaurant)
	if err != nil {
		return nil, err
	}

	tipAmount := pgtype.Numeric{}
	if !tip.IsZero() {
		tipAmount = decimalToNumeric(tip)
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID: req.RestaurantID,
		OrderNumber:  orderNumber,
		OrderType:    req.OrderType,
		TableID:      tableID,
		CustomerID:   customerID,
		Subtotal:     decimalToNumeric(totals.Subtotal),
		TaxAmount:    decimalToNumeric(totals.Tax),
		TipAmount:    tipAmount,
		TotalAmount:  decimalToNumeric(totals.Total),
		Notes:        notes,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		if isOrderNumberConflict(err) {
			return nil, ErrOrderNumberConflict
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemResults []OrderItemResult
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var modResults []database.OrderItemModifier
		for _, mod := range pi.modifiers {
			oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID: item.ID,
				ModifierID:  mod.modifierID,
				UnitPrice:   decimalToNumeric(mod.unitPrice),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			modResults = append(modResults, oim)
		}

		itemResults = append(itemResults, OrderItemResult{Item: item, Modifiers: modResults})
	}

	// Occupy the table as part of the same unit of work.
	if tableID.Valid && table.Status == enum.TableStatusAvailable {
		if err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:     table.ID,
			Status: enum.TableStatusOccupied,
		}); err != nil {
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: itemResults}, nil
}

// priceItem validates one requested item against the catalog and captures
// its prices.
func (s *OrderService) priceItem(ctx context.Context, store OrderStore, restaurantID uuid.UUID, item CreateOrderItemRequest) (pricedItem, error) {
	if item.Quantity < 1 {
		return pricedItem{}, ErrInvalidQuantity
	}

	menuItemID, err := uuid.Parse(item.MenuItemID)
	if err != nil {
		return pricedItem{}, ErrInvalidMenuItemID
	}

	menuItem, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
		ID:           menuItemID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricedItem{}, ErrMenuItemNotFound
		}
		return pricedItem{}, fmt.Errorf("get menu item: %w", err)
	}
	if !menuItem.IsAvailable {
		return pricedItem{}, ErrMenuItemUnavailable
	}

	unitPrice := numericToDecimal(menuItem.Price)

	seen := make(map[uuid.UUID]bool, len(item.ModifierIDs))
	var mods []pricedModifier
	var modPrices []decimal.Decimal
	for j, modIDStr := range item.ModifierIDs {
		modID, err := uuid.Parse(modIDStr)
		if err != nil {
			return pricedItem{}, fmt.Errorf("modifiers[%d]: %w", j, ErrInvalidModifierID)
		}
		if seen[modID] {
			return pricedItem{}, fmt.Errorf("modifiers[%d]: %w", j, ErrInvalidModifierSelection)
		}
		seen[modID] = true

		modifier, err := store.GetModifierForOrder(ctx, modID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return pricedItem{}, fmt.Errorf("modifiers[%d]: %w", j, ErrModifierNotFound)
			}
			return pricedItem{}, fmt.Errorf("modifiers[%d]: get modifier: %w", j, err)
		}
		if modifier.MenuItemID != menuItemID {
			return pricedItem{}, fmt.Errorf("modifiers[%d]: %w", j, ErrInvalidModifierSelection)
		}
		if !modifier.IsAvailable {
			return pricedItem{}, fmt.Errorf("modifiers[%d]: %w", j, ErrModifierUnavailable)
		}

		price := numericToDecimal(modifier.Price)
		mods = append(mods, pricedModifier{modifierID: modID, unitPrice: price})
		modPrices = append(modPrices, price)
	}

	notes := pgtype.Text{}
	if item.Notes != "" {
		notes = pgtype.Text{String: item.Notes, Valid: true}
	}

	return pricedItem{
		params: database.CreateOrderItemParams{
			MenuItemID: menuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  decimalToNumeric(unitPrice),
			Notes:      notes,
		},
		modifiers: mods,
		line: pricing.Line{
			UnitPrice:      unitPrice,
			ModifierPrices: modPrices,
			Quantity:       item.Quantity,
		},
	}, nil
}

// nextOrderNumber builds <prefix>-<YYYYMMDD>-<NNN> from the day's order
// count. Two transactions can race to the same sequence; the unique
// constraint catches it and CreateOrder reports the conflict.
func (s *OrderService) nextOrderNumber(ctx context.Context, store OrderStore, restaurant database.GetRestaurantRow) (string, error) {
	day := s.now().UTC()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	seq, err := store.GetNextOrderSequence(ctx, database.GetNextOrderSequenceParams{
		RestaurantID: restaurant.ID,
		CreatedAfter: midnight,
	})
	if err != nil {
		return "", fmt.Errorf("get next order sequence: %w", err)
	}
	return fmt.Sprintf("%s-%s-%03d", restaurant.OrderPrefix, day.Format("20060102"), seq), nil
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeout, enum.OrderTypeDelivery, enum.OrderTypeOnline:
		return nil
	}
	return ErrInvalidOrderType
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_restaurant_id_order_number_key"
	}
	return false
}

// storeErr maps an exceeded store deadline to the retryable sentinel;
// business-rule errors pass through untouched.
func storeErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return ErrStoreTimeout
	}
	return err
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
