package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
)

// GiftCardStore defines the DB methods the gift card service needs.
type GiftCardStore interface {
	GetGiftCardByCode(ctx context.Context, arg database.GetGiftCardByCodeParams) (database.GiftCard, error)
	GetGiftCardForUpdate(ctx context.Context, arg database.GetGiftCardForUpdateParams) (database.GiftCard, error)
	UpdateGiftCardBalance(ctx context.Context, arg database.UpdateGiftCardBalanceParams) (database.GiftCard, error)
	CreateGiftCardTransaction(ctx context.Context, arg database.CreateGiftCardTransactionParams) (database.GiftCardTransaction, error)
	ListGiftCardTransactions(ctx context.Context, giftCardID uuid.UUID) ([]database.GiftCardTransaction, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewGiftCardStore creates a GiftCardStore from a DBTX (pool or tx).
type NewGiftCardStore func(db database.DBTX) GiftCardStore

// RedeemRequest spends gift card balance, optionally against an order.
type RedeemRequest struct {
	RestaurantID uuid.UUID
	Code         string
	Amount       string
	OrderID      string
	Actor        Actor
}

// AddFundsRequest loads balance onto a gift card.
type AddFundsRequest struct {
	RestaurantID uuid.UUID
	Code         string
	Amount       string
	Actor        Actor
}

// GiftCardResult is a gift card state change plus the ledger row recording it.
type GiftCardResult struct {
	Card        database.GiftCard
	Transaction database.GiftCardTransaction
}

// GiftCardService handles gift card balance changes. Every change appends
// a ledger row; balance never goes negative and a card that reaches
// exactly zero is deactivated.
type GiftCardService struct {
	pool     TxBeginner
	newStore NewGiftCardStore
	now      func() time.Time
	timeout  time.Duration
}

// NewGiftCardService creates a new GiftCardService.
func NewGiftCardService(pool TxBeginner, newStore NewGiftCardStore) *GiftCardService {
	return &GiftCardService{
		pool:     pool,
		newStore: newStore,
		now:      time.Now,
		timeout:  storeOpTimeout,
	}
}

// Redeem deducts the amount from the card under a row lock. When an order
// is given, a GIFT_CARD payment is recorded and the ledger row links to it.
func (s *GiftCardService) Redeem(ctx context.Context, req RedeemRequest) (*GiftCardResult, error) {
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	card, err := s.lockCard(ctx, store, req.RestaurantID, req.Code)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	if !card.IsActive {
		return nil, ErrGiftCardInactive
	}
	if card.ExpiryDate.Valid && s.now().After(card.ExpiryDate.Time) {
		return nil, ErrGiftCardExpired
	}

	balance := numericToDecimal(card.CurrentBalance)
	if amount.GreaterThan(balance) {
		return nil, ErrInsufficientBalance
	}
	newBalance := balance.Sub(amount)

	updated, err := store.UpdateGiftCardBalance(ctx, database.UpdateGiftCardBalanceParams{
		ID:             card.ID,
		CurrentBalance: decimalToNumeric(newBalance),
		IsActive:       !newBalance.IsZero(),
	})
	if err != nil {
		return nil, storeErr(ctx, fmt.Errorf("update gift card balance: %w", err))
	}

	paymentID := pgtype.UUID{}
	if req.OrderID != "" {
		oid, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, ErrOrderNotFound
		}
		order, err := store.GetOrder(ctx, database.GetOrderParams{
			ID:           oid,
			RestaurantID: req.RestaurantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, storeErr(ctx, fmt.Errorf("get order: %w", err))
		}
		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:       order.ID,
			PaymentMethod: enum.PaymentMethodGiftCard,
			Amount:        decimalToNumeric(amount),
			ProcessedBy:   req.Actor.UserID,
		})
		if err != nil {
			return nil, storeErr(ctx, fmt.Errorf("create payment: %w", err))
		}
		paymentID = pgtype.UUID{Bytes: payment.ID, Valid: true}
	}

	txn, err := store.CreateGiftCardTransaction(ctx, database.CreateGiftCardTransactionParams{
		GiftCardID:      card.ID,
		TransactionType: enum.GiftCardTxRedeem,
		Amount:          decimalToNumeric(amount),
		PaymentID:       paymentID,
		PerformedBy:     pgtype.UUID{Bytes: req.Actor.UserID, Valid: true},
	})
	if err != nil {
		return nil, storeErr(ctx, fmt.Errorf("create gift card transaction: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr(ctx, fmt.Errorf("commit tx: %w", err))
	}
	return &GiftCardResult{Card: updated, Transaction: txn}, nil
}

// AddFunds loads balance onto the card and reactivates it if the load
// brings it back above zero.
func (s *GiftCardService) AddFunds(ctx context.Context, req AddFundsRequest) (*GiftCardResult, error) {
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	card, err := s.lockCard(ctx, store, req.RestaurantID, req.Code)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	if card.ExpiryDate.Valid && s.now().After(card.ExpiryDate.Time) {
		return nil, ErrGiftCardExpired
	}

	newBalance := numericToDecimal(card.CurrentBalance).Add(amount)

	updated, err := store.UpdateGiftCardBalance(ctx, database.UpdateGiftCardBalanceParams{
		ID:             card.ID,
		CurrentBalance: decimalToNumeric(newBalance),
		IsActive:       newBalance.IsPositive(),
	})
	if err != nil {
		return nil, storeErr(ctx, fmt.Errorf("update gift card balance: %w", err))
	}

	txn, err := store.CreateGiftCardTransaction(ctx, database.CreateGiftCardTransactionParams{
		GiftCardID:      card.ID,
		TransactionType: enum.GiftCardTxLoad,
		Amount:          decimalToNumeric(amount),
		PerformedBy:     pgtype.UUID{Bytes: req.Actor.UserID, Valid: true},
	})
	if err != nil {
		return nil, storeErr(ctx, fmt.Errorf("create gift card transaction: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr(ctx, fmt.Errorf("commit tx: %w", err))
	}
	return &GiftCardResult{Card: updated, Transaction: txn}, nil
}

func (s *GiftCardService) lockCard(ctx context.Context, store GiftCardStore, restaurantID uuid.UUID, code string) (database.GiftCard, error) {
	card, err := store.GetGiftCardForUpdate(ctx, database.GetGiftCardForUpdateParams{
		RestaurantID: restaurantID,
		Code:         code,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.GiftCard{}, ErrGiftCardNotFound
		}
		return database.GiftCard{}, fmt.Errorf("get gift card: %w", err)
	}
	return card, nil
}

func parsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d.Round(2), nil
}
