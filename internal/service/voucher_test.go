package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/database"
)

// mockVoucherStore implements VoucherStore with configurable behavior.
type mockVoucherStore struct {
	getOrderForUpdateFn     func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	getRestaurantFn         func(ctx context.Context, id uuid.UUID) (database.GetRestaurantRow, error)
	getVoucherByCodeFn      func(ctx context.Context, arg database.GetVoucherByCodeParams) (database.Voucher, error)
	getVoucherFn            func(ctx context.Context, id uuid.UUID) (database.Voucher, error)
	incrementVoucherUsageFn func(ctx context.Context, id uuid.UUID) error
	decrementVoucherUsageFn func(ctx context.Context, id uuid.UUID) error
	createRedemptionFn      func(ctx context.Context, arg database.CreateVoucherRedemptionParams) (database.VoucherRedemption, error)
	getRedemptionByOrderFn  func(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error)
	deleteRedemptionFn      func(ctx context.Context, orderID uuid.UUID) error
	updateOrderTotalsFn     func(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
}

func (m *mockVoucherStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, arg)
}
func (m *mockVoucherStore) GetRestaurant(ctx context.Context, id uuid.UUID) (database.GetRestaurantRow, error) {
	return m.getRestaurantFn(ctx, id)
}
func (m *mockVoucherStore) GetVoucherByCode(ctx context.Context, arg database.GetVoucherByCodeParams) (database.Voucher, error) {
	return m.getVoucherByCodeFn(ctx, arg)
}
func (m *mockVoucherStore) GetVoucher(ctx context.Context, id uuid.UUID) (database.Voucher, error) {
	return m.getVoucherFn(ctx, id)
}
func (m *mockVoucherStore) IncrementVoucherUsage(ctx context.Context, id uuid.UUID) error {
	return m.incrementVoucherUsageFn(ctx, id)
}
func (m *mockVoucherStore) DecrementVoucherUsage(ctx context.Context, id uuid.UUID) error {
	return m.decrementVoucherUsageFn(ctx, id)
}
func (m *mockVoucherStore) CreateVoucherRedemption(ctx context.Context, arg database.CreateVoucherRedemptionParams) (database.VoucherRedemption, error) {
	return m.createRedemptionFn(ctx, arg)
}
func (m *mockVoucherStore) GetVoucherRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error) {
	return m.getRedemptionByOrderFn(ctx, orderID)
}
func (m *mockVoucherStore) DeleteVoucherRedemption(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteRedemptionFn(ctx, orderID)
}
func (m *mockVoucherStore) UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	return m.updateOrderTotalsFn(ctx, arg)
}

func newTestVoucherService(store *mockVoucherStore) (*VoucherService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) VoucherStore { return store }
	svc := NewVoucherService(pool, newStore, NopNotifier{})
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, tx
}

func percentVoucher(restaurantID uuid.UUID) database.Voucher {
	return database.Voucher{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Code:         "SPRING20",
		DiscountType: "PERCENTAGE",
		Value:        makeNumeric("20.00"),
		MinPurchase:  makeNumeric("0.00"),
		IsActive:     true,
	}
}

// voucherStore wires the mock around one order and one voucher.
func voucherStore(order database.Order, voucher database.Voucher) *mockVoucherStore {
	return &mockVoucherStore{
		getOrderForUpdateFn: func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
			if arg.ID == order.ID {
				return order, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		getRestaurantFn: func(ctx context.Context, id uuid.UUID) (database.GetRestaurantRow, error) {
			return database.GetRestaurantRow{ID: id, OrderPrefix: "TVL", TaxRate: makeNumeric("8.00")}, nil
		},
		getVoucherByCodeFn: func(ctx context.Context, arg database.GetVoucherByCodeParams) (database.Voucher, error) {
			if arg.Code == voucher.Code {
				return voucher, nil
			}
			return database.Voucher{}, pgx.ErrNoRows
		},
		getVoucherFn: func(ctx context.Context, id uuid.UUID) (database.Voucher, error) {
			if id == voucher.ID {
				return voucher, nil
			}
			return database.Voucher{}, pgx.ErrNoRows
		},
		incrementVoucherUsageFn: func(ctx context.Context, id uuid.UUID) error { return nil },
		decrementVoucherUsageFn: func(ctx context.Context, id uuid.UUID) error { return nil },
		createRedemptionFn: func(ctx context.Context, arg database.CreateVoucherRedemptionParams) (database.VoucherRedemption, error) {
			return database.VoucherRedemption{ID: uuid.New(), OrderID: arg.OrderID, VoucherID: arg.VoucherID}, nil
		},
		getRedemptionByOrderFn: func(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error) {
			return database.VoucherRedemption{}, pgx.ErrNoRows
		},
		deleteRedemptionFn: func(ctx context.Context, orderID uuid.UUID) error { return nil },
		updateOrderTotalsFn: func(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
			updated := order
			updated.Subtotal = arg.Subtotal
			updated.TaxAmount = arg.TaxAmount
			updated.TotalAmount = arg.TotalAmount
			return updated, nil
		},
	}
}

func applyReq(order database.Order, code string) ApplyVoucherRequest {
	return ApplyVoucherRequest{
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Code:         code,
		Actor:        Actor{UserID: uuid.New(), Role: "CASHIER"},
	}
}

func TestApplyVoucher_PercentageDiscount(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	svc, tx := newTestVoucherService(voucherStore(order, voucher))

	// 30.00 - 20% = 24.00, 8% tax = 1.92, total 25.92.
	updated, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(updated.Subtotal, "24.00") {
		t.Errorf("subtotal = %v, want 24.00", numericToDecimal(updated.Subtotal))
	}
	if !numericEquals(updated.TaxAmount, "1.92") {
		t.Errorf("tax = %v, want 1.92", numericToDecimal(updated.TaxAmount))
	}
	if !numericEquals(updated.TotalAmount, "25.92") {
		t.Errorf("total = %v, want 25.92", numericToDecimal(updated.TotalAmount))
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestApplyVoucher_NotFound(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	svc, _ := newTestVoucherService(voucherStore(order, percentVoucher(restaurantID)))

	_, err := svc.Apply(context.Background(), applyReq(order, "NOPE"))
	if !errors.Is(err, ErrVoucherNotFound) {
		t.Fatalf("expected ErrVoucherNotFound, got: %v", err)
	}
}

func TestApplyVoucher_AlreadyApplied(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	store := voucherStore(order, voucher)
	store.getRedemptionByOrderFn = func(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error) {
		return database.VoucherRedemption{OrderID: orderID, VoucherID: voucher.ID}, nil
	}
	svc, _ := newTestVoucherService(store)

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherAlreadyApplied) {
		t.Fatalf("expected ErrVoucherAlreadyApplied, got: %v", err)
	}
}

func TestApplyVoucher_Inactive(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	voucher.IsActive = false
	svc, _ := newTestVoucherService(voucherStore(order, voucher))

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherInactive) {
		t.Fatalf("expected ErrVoucherInactive, got: %v", err)
	}
}

func TestApplyVoucher_NotStarted(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	voucher.StartDate = pgtype.Timestamptz{Time: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Valid: true}
	svc, _ := newTestVoucherService(voucherStore(order, voucher))

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherNotStarted) {
		t.Fatalf("expected ErrVoucherNotStarted, got: %v", err)
	}
}

func TestApplyVoucher_Expired(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	voucher.ExpiryDate = pgtype.Timestamptz{Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}
	svc, _ := newTestVoucherService(voucherStore(order, voucher))

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherExpired) {
		t.Fatalf("expected ErrVoucherExpired, got: %v", err)
	}
}

func TestApplyVoucher_Exhausted(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	voucher.UsageLimit = pgtype.Int4{Int32: 5, Valid: true}
	voucher.UsageCount = 5
	svc, _ := newTestVoucherService(voucherStore(order, voucher))

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherExhausted) {
		t.Fatalf("expected ErrVoucherExhausted, got: %v", err)
	}
}

func TestApplyVoucher_MinPurchaseNotMet(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	voucher.MinPurchase = makeNumeric("50.00")
	svc, _ := newTestVoucherService(voucherStore(order, voucher))

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrMinimumPurchaseNotMet) {
		t.Fatalf("expected ErrMinimumPurchaseNotMet, got: %v", err)
	}
}

func TestApplyVoucher_FixedValueAboveSubtotalRejected(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID) // subtotal 30.00
	voucher := percentVoucher(restaurantID)
	voucher.DiscountType = "FIXED_AMOUNT"
	voucher.Value = makeNumeric("40.00")
	svc, tx := newTestVoucherService(voucherStore(order, voucher))

	// A 40.00 flat discount on a 30.00 order has no exact inverse on
	// removal, so apply refuses it outright.
	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherExceedsSubtotal) {
		t.Fatalf("expected ErrVoucherExceedsSubtotal, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit")
	}
}

func TestApplyVoucher_UsageRaceLosesCleanly(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	voucher := percentVoucher(restaurantID)
	store := voucherStore(order, voucher)
	// Conditional increment hit the limit after our read.
	store.incrementVoucherUsageFn = func(ctx context.Context, id uuid.UUID) error { return pgx.ErrNoRows }
	svc, tx := newTestVoucherService(store)

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrVoucherExhausted) {
		t.Fatalf("expected ErrVoucherExhausted, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit when the usage race is lost")
	}
}

func TestApplyVoucher_NotEditableOrder(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	order.Status = "COMPLETED"
	svc, _ := newTestVoucherService(voucherStore(order, percentVoucher(restaurantID)))

	_, err := svc.Apply(context.Background(), applyReq(order, "SPRING20"))
	if !errors.Is(err, ErrOrderNotEditable) {
		t.Fatalf("expected ErrOrderNotEditable, got: %v", err)
	}
}

func TestRemoveVoucher_RestoresTotals(t *testing.T) {
	restaurantID := uuid.New()
	voucher := percentVoucher(restaurantID)

	// Order as it looks after SPRING20 was applied to a 30.00 subtotal.
	order := pendingOrder(restaurantID)
	order.Subtotal = makeNumeric("24.00")
	order.TaxAmount = makeNumeric("1.92")
	order.TotalAmount = makeNumeric("25.92")

	store := voucherStore(order, voucher)
	store.getRedemptionByOrderFn = func(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error) {
		return database.VoucherRedemption{OrderID: orderID, VoucherID: voucher.ID}, nil
	}
	var decremented bool
	store.decrementVoucherUsageFn = func(ctx context.Context, id uuid.UUID) error {
		decremented = id == voucher.ID
		return nil
	}
	svc, _ := newTestVoucherService(store)

	updated, err := svc.Remove(context.Background(), RemoveVoucherRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(updated.Subtotal, "30.00") {
		t.Errorf("subtotal = %v, want 30.00", numericToDecimal(updated.Subtotal))
	}
	if !numericEquals(updated.TaxAmount, "2.40") {
		t.Errorf("tax = %v, want 2.40", numericToDecimal(updated.TaxAmount))
	}
	if !numericEquals(updated.TotalAmount, "32.40") {
		t.Errorf("total = %v, want 32.40", numericToDecimal(updated.TotalAmount))
	}
	if !decremented {
		t.Error("voucher usage was not handed back")
	}
}

func TestRemoveVoucher_FixedAmountInverse(t *testing.T) {
	restaurantID := uuid.New()
	voucher := percentVoucher(restaurantID)
	voucher.DiscountType = "FIXED_AMOUNT"
	voucher.Value = makeNumeric("5.00")

	order := pendingOrder(restaurantID)
	order.Subtotal = makeNumeric("25.00") // 30.00 - 5.00

	store := voucherStore(order, voucher)
	store.getRedemptionByOrderFn = func(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error) {
		return database.VoucherRedemption{OrderID: orderID, VoucherID: voucher.ID}, nil
	}
	svc, _ := newTestVoucherService(store)

	updated, err := svc.Remove(context.Background(), RemoveVoucherRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(updated.Subtotal, "30.00") {
		t.Errorf("subtotal = %v, want 30.00", numericToDecimal(updated.Subtotal))
	}
}

func TestRemoveVoucher_NoneApplied(t *testing.T) {
	restaurantID := uuid.New()
	order := pendingOrder(restaurantID)
	svc, _ := newTestVoucherService(voucherStore(order, percentVoucher(restaurantID)))

	_, err := svc.Remove(context.Background(), RemoveVoucherRequest{
		RestaurantID: restaurantID,
		OrderID:      order.ID,
	})
	if !errors.Is(err, ErrNoVoucherApplied) {
		t.Fatalf("expected ErrNoVoucherApplied, got: %v", err)
	}
}
