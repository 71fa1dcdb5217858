package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/pricing"
)

// VoucherStore defines the DB methods the voucher service needs.
type VoucherStore interface {
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.GetRestaurantRow, error)
	GetVoucherByCode(ctx context.Context, arg database.GetVoucherByCodeParams) (database.Voucher, error)
	GetVoucher(ctx context.Context, id uuid.UUID) (database.Voucher, error)
	IncrementVoucherUsage(ctx context.Context, id uuid.UUID) error
	DecrementVoucherUsage(ctx context.Context, id uuid.UUID) error
	CreateVoucherRedemption(ctx context.Context, arg database.CreateVoucherRedemptionParams) (database.VoucherRedemption, error)
	GetVoucherRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error)
	DeleteVoucherRedemption(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
}

// NewVoucherStore creates a VoucherStore from a DBTX (pool or tx).
type NewVoucherStore func(db database.DBTX) VoucherStore

// ApplyVoucherRequest applies a voucher code to an order.
type ApplyVoucherRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	Code         string
	Actor        Actor
}

// RemoveVoucherRequest removes the voucher currently applied to an order.
type RemoveVoucherRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
}

// VoucherService handles voucher application and removal.
type VoucherService struct {
	pool     TxBeginner
	newStore NewVoucherStore
	notifier Notifier
	now      func() time.Time
	timeout  time.Duration
}

// NewVoucherService creates a new VoucherService.
func NewVoucherService(pool TxBeginner, newStore NewVoucherStore, notifier Notifier) *VoucherService {
	return &VoucherService{
		pool:     pool,
		newStore: newStore,
		notifier: notifier,
		now:      time.Now,
		timeout:  storeOpTimeout,
	}
}

// Apply validates the voucher against the order and rewrites the order's
// totals with the discount. At most one voucher per order; eligibility
// checks run in a fixed sequence so callers see a stable first failure.
func (s *VoucherService) Apply(ctx context.Context, req ApplyVoucherRequest) (*database.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, voucher, err := s.applyTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventVoucherApplied, map[string]any{
		"order_id":     order.ID,
		"voucher_code": voucher.Code,
		"total_amount": numericToDecimal(order.TotalAmount).StringFixed(2),
	})
	return order, nil
}

func (s *VoucherService) applyTx(ctx context.Context, req ApplyVoucherRequest) (*database.Order, *database.Voucher, error) {
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
	if !isEditableStatus(order.Status) {
		return nil, nil, ErrOrderNotEditable
	}

	voucher, err := store.GetVoucherByCode(ctx, database.GetVoucherByCodeParams{
		RestaurantID: req.RestaurantID,
		Code:         req.Code,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrVoucherNotFound
		}
		return nil, nil, fmt.Errorf("get voucher: %w", err)
	}

	if _, err := store.GetVoucherRedemptionByOrder(ctx, order.ID); err == nil {
		return nil, nil, ErrVoucherAlreadyApplied
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("get voucher redemption: %w", err)
	}

	now := s.now()
	if !voucher.IsActive {
		return nil, nil, ErrVoucherInactive
	}
	if voucher.StartDate.Valid && now.Before(voucher.StartDate.Time) {
		return nil, nil, ErrVoucherNotStarted
	}
	if voucher.ExpiryDate.Valid && now.After(voucher.ExpiryDate.Time) {
		return nil, nil, ErrVoucherExpired
	}
	if voucher.UsageLimit.Valid && voucher.UsageCount >= voucher.UsageLimit.Int32 {
		return nil, nil, ErrVoucherExhausted
	}

	subtotal := numericToDecimal(order.Subtotal)
	minPurchase := numericToDecimal(voucher.MinPurchase)
	if !minPurchase.IsZero() && subtotal.LessThan(minPurchase) {
		return nil, nil, ErrMinimumPurchaseNotMet
	}
	// A flat discount larger than the subtotal cannot be undone exactly on
	// removal, so it is rejected up front.
	if voucher.DiscountType != enum.DiscountTypePercentage && numericToDecimal(voucher.Value).GreaterThan(subtotal) {
		return nil, nil, ErrVoucherExceedsSubtotal
	}

	restaurant, err := store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, nil, fmt.Errorf("get restaurant: %w", err)
	}

	totals := pricing.FromSubtotal(subtotal, numericToDecimal(restaurant.TaxRate), numericToDecimal(order.TipAmount), &pricing.Discount{
		Type:  voucher.DiscountType,
		Value: numericToDecimal(voucher.Value),
	})

	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:          order.ID,
		Subtotal:    decimalToNumeric(totals.Subtotal),
		TaxAmount:   decimalToNumeric(totals.Tax),
		TotalAmount: decimalToNumeric(totals.Total),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("update order totals: %w", err)
	}

	if _, err := store.CreateVoucherRedemption(ctx, database.CreateVoucherRedemptionParams{
		OrderID:    order.ID,
		VoucherID:  voucher.ID,
		RedeemedBy: req.Actor.UserID,
	}); err != nil {
		return nil, nil, fmt.Errorf("create voucher redemption: %w", err)
	}

	if err := store.IncrementVoucherUsage(ctx, voucher.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrVoucherExhausted
		}
		return nil, nil, fmt.Errorf("increment voucher usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, &voucher, nil
}

// Remove undoes the order's voucher by inverting the discount algebra:
// the pre-discount subtotal is reconstructed, tax recomputed, the
// redemption deleted and the voucher's usage count handed back.
func (s *VoucherService) Remove(ctx context.Context, req RemoveVoucherRequest) (*database.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, voucher, err := s.removeTx(ctx, req)
	if err != nil {
		return nil, storeErr(ctx, err)
	}

	s.notifier.Publish(req.RestaurantID, EventVoucherRemoved, map[string]any{
		"order_id":     order.ID,
		"voucher_code": voucher.Code,
		"total_amount": numericToDecimal(order.TotalAmount).StringFixed(2),
	})
	return order, nil
}

func (s *VoucherService) removeTx(ctx context.Context, req RemoveVoucherRequest) (*database.Order, *database.Voucher, error) {
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
	if !isEditableStatus(order.Status) {
		return nil, nil, ErrOrderNotEditable
	}

	redemption, err := store.GetVoucherRedemptionByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNoVoucherApplied
		}
		return nil, nil, fmt.Errorf("get voucher redemption: %w", err)
	}

	voucher, err := store.GetVoucher(ctx, redemption.VoucherID)
	if err != nil {
		return nil, nil, fmt.Errorf("get voucher: %w", err)
	}

	restaurant, err := store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, nil, fmt.Errorf("get restaurant: %w", err)
	}

	restored := pricing.InvertDiscount(numericToDecimal(order.Subtotal), voucher.DiscountType, numericToDecimal(voucher.Value))
	totals := pricing.FromSubtotal(restored, numericToDecimal(restaurant.TaxRate), numericToDecimal(order.TipAmount), nil)

	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:          order.ID,
		Subtotal:    decimalToNumeric(totals.Subtotal),
		TaxAmount:   decimalToNumeric(totals.Tax),
		TotalAmount: decimalToNumeric(totals.Total),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("update order totals: %w", err)
	}

	if err := store.DeleteVoucherRedemption(ctx, order.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNoVoucherApplied
		}
		return nil, nil, fmt.Errorf("delete voucher redemption: %w", err)
	}
	if err := store.DecrementVoucherUsage(ctx, voucher.ID); err != nil {
		return nil, nil, fmt.Errorf("decrement voucher usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, &voucher, nil
}
