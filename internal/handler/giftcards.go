package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/service"
)

// GiftCardServicer defines the service methods needed by gift card handlers.
type GiftCardServicer interface {
	Redeem(ctx context.Context, req service.RedeemRequest) (*service.GiftCardResult, error)
	AddFunds(ctx context.Context, req service.AddFundsRequest) (*service.GiftCardResult, error)
}

// GiftCardStore defines the database methods needed by the gift card read
// endpoints. Satisfied by *database.Queries.
type GiftCardStore interface {
	GetGiftCardByCode(ctx context.Context, arg database.GetGiftCardByCodeParams) (database.GiftCard, error)
	ListGiftCardTransactions(ctx context.Context, giftCardID uuid.UUID) ([]database.GiftCardTransaction, error)
}

// GiftCardHandler handles gift card endpoints.
type GiftCardHandler struct {
	svc   GiftCardServicer
	store GiftCardStore
}

func NewGiftCardHandler(svc GiftCardServicer, store GiftCardStore) *GiftCardHandler {
	return &GiftCardHandler{svc: svc, store: store}
}

// RegisterRoutes registers gift card endpoints. Mounted at
// /restaurants/{rid}/gift-cards.
func (h *GiftCardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{code}", h.Get)
	r.Post("/{code}/redeem", h.Redeem)
	r.Post("/{code}/funds", h.AddFunds)
}

type giftCardAmountRequest struct {
	Amount  string `json:"amount"`
	OrderID string `json:"order_id"`
}

type giftCardResponse struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	Balance    string     `json:"balance"`
	IsActive   bool       `json:"is_active"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

type giftCardTransactionResponse struct {
	ID              uuid.UUID `json:"id"`
	TransactionType string    `json:"transaction_type"`
	Amount          string    `json:"amount"`
	PaymentID       *string   `json:"payment_id"`
	PerformedBy     *string   `json:"performed_by"`
	CreatedAt       time.Time `json:"created_at"`
}

type giftCardDetailResponse struct {
	giftCardResponse
	Transactions []giftCardTransactionResponse `json:"transactions"`
}

type giftCardChangeResponse struct {
	giftCardResponse
	Transaction giftCardTransactionResponse `json:"transaction"`
}

// Get handles GET /restaurants/{rid}/gift-cards/{code}. Returns the card
// with its full transaction ledger.
func (h *GiftCardHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	code := chi.URLParam(r, "code")
	card, err := h.store.GetGiftCardByCode(r.Context(), database.GetGiftCardByCodeParams{
		RestaurantID: restaurantID,
		Code:         code,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "gift card not found"})
			return
		}
		log.Printf("ERROR: get gift card: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	txs, err := h.store.ListGiftCardTransactions(r.Context(), card.ID)
	if err != nil {
		log.Printf("ERROR: list gift card transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	txResps := make([]giftCardTransactionResponse, len(txs))
	for i, tx := range txs {
		txResps[i] = dbGiftCardTxToResponse(tx)
	}

	writeJSON(w, http.StatusOK, giftCardDetailResponse{
		giftCardResponse: dbGiftCardToResponse(card),
		Transactions:     txResps,
	})
}

// Redeem handles POST /restaurants/{rid}/gift-cards/{code}/redeem.
func (h *GiftCardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	var req giftCardAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Redeem(r.Context(), service.RedeemRequest{
		RestaurantID: restaurantID,
		Code:         chi.URLParam(r, "code"),
		Amount:       req.Amount,
		OrderID:      req.OrderID,
		Actor:        service.Actor{UserID: claims.UserID, Role: claims.Role},
	})
	if err != nil {
		writeServiceError(w, "redeem gift card", err)
		return
	}

	writeJSON(w, http.StatusOK, giftCardChangeResponse{
		giftCardResponse: dbGiftCardToResponse(result.Card),
		Transaction:      dbGiftCardTxToResponse(result.Transaction),
	})
}

// AddFunds handles POST /restaurants/{rid}/gift-cards/{code}/funds.
func (h *GiftCardHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	var req giftCardAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.AddFunds(r.Context(), service.AddFundsRequest{
		RestaurantID: restaurantID,
		Code:         chi.URLParam(r, "code"),
		Amount:       req.Amount,
		Actor:        service.Actor{UserID: claims.UserID, Role: claims.Role},
	})
	if err != nil {
		writeServiceError(w, "add gift card funds", err)
		return
	}

	writeJSON(w, http.StatusOK, giftCardChangeResponse{
		giftCardResponse: dbGiftCardToResponse(result.Card),
		Transaction:      dbGiftCardTxToResponse(result.Transaction),
	})
}

func dbGiftCardToResponse(card database.GiftCard) giftCardResponse {
	return giftCardResponse{
		ID:         card.ID,
		Code:       card.Code,
		Balance:    numericString(card.CurrentBalance),
		IsActive:   card.IsActive,
		ExpiryDate: timePtr(card.ExpiryDate),
	}
}

func dbGiftCardTxToResponse(tx database.GiftCardTransaction) giftCardTransactionResponse {
	return giftCardTransactionResponse{
		ID:              tx.ID,
		TransactionType: tx.TransactionType,
		Amount:          numericString(tx.Amount),
		PaymentID:       uuidPtr(tx.PaymentID),
		PerformedBy:     uuidPtr(tx.PerformedBy),
		CreatedAt:       tx.CreatedAt,
	}
}
