package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavolo-pos/api/internal/auth"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/middleware"
	"github.com/tavolo-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AddItem(ctx context.Context, req service.AddItemRequest) (*database.Order, error)
	UpdateItem(ctx context.Context, req service.UpdateItemRequest) (*database.Order, error)
	RemoveItem(ctx context.Context, req service.RemoveItemRequest) (*database.Order, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (*database.Order, error)
	UpdateItemStatus(ctx context.Context, req service.UpdateItemStatusRequest) (*database.OrderItem, error)
}

// OrderStore defines the database methods needed by the order read endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemModifier, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	GetVoucherRedemptionByOrder(ctx context.Context, orderID uuid.UUID) (database.VoucherRedemption, error)
	GetVoucher(ctx context.Context, id uuid.UUID) (database.Voucher, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter:
// /restaurants/{rid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)
	r.Post("/{id}/items", h.AddItem)
	r.Patch("/{id}/items/{itemID}", h.UpdateItem)
	r.Delete("/{id}/items/{itemID}", h.RemoveItem)
	r.Patch("/{id}/items/{itemID}/status", h.UpdateItemStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType  string                   `json:"order_type"`
	TableID    string                   `json:"table_id"`
	CustomerID string                   `json:"customer_id"`
	Notes      string                   `json:"notes"`
	Tip        string                   `json:"tip"`
	Items      []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID  string   `json:"menu_item_id"`
	Quantity    int32    `json:"quantity"`
	Notes       string   `json:"notes"`
	ModifierIDs []string `json:"modifier_ids"`
}

type updateOrderItemRequest struct {
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	OrderType   string              `json:"order_type"`
	Status      string              `json:"status"`
	TableID     *string             `json:"table_id"`
	CustomerID  *string             `json:"customer_id"`
	Subtotal    string              `json:"subtotal"`
	TaxAmount   string              `json:"tax_amount"`
	TipAmount   string              `json:"tip_amount"`
	TotalAmount string              `json:"total_amount"`
	Notes       *string             `json:"notes"`
	CreatedBy   uuid.UUID           `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at"`
	Items       []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID                   `json:"id"`
	MenuItemID uuid.UUID                   `json:"menu_item_id"`
	Quantity   int32                       `json:"quantity"`
	UnitPrice  string                      `json:"unit_price"`
	Notes      *string                     `json:"notes"`
	Status     string                      `json:"status"`
	Modifiers  []orderItemModifierResponse `json:"modifiers,omitempty"`
}

type orderItemModifierResponse struct {
	ID         uuid.UUID `json:"id"`
	ModifierID uuid.UUID `json:"modifier_id"`
	UnitPrice  string    `json:"unit_price"`
}

type paymentResponse struct {
	ID            uuid.UUID `json:"id"`
	PaymentMethod string    `json:"payment_method"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	ProcessedBy   uuid.UUID `json:"processed_by"`
	ProcessedAt   time.Time `json:"processed_at"`
}

type redemptionResponse struct {
	VoucherID   uuid.UUID `json:"voucher_id"`
	VoucherCode string    `json:"voucher_code"`
	RedeemedBy  uuid.UUID `json:"redeemed_by"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}

// orderDetailResponse extends orderResponse with payments and any applied
// voucher for the detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse   `json:"payments"`
	Voucher  *redemptionResponse `json:"voucher,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /restaurants/{rid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID:  item.MenuItemID,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
			ModifierIDs: item.ModifierIDs,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID: restaurantID,
		CreatedBy:    claims.UserID,
		OrderType:    req.OrderType,
		TableID:      req.TableID,
		CustomerID:   req.CustomerID,
		Notes:        req.Notes,
		Tip:          req.Tip,
		Items:        svcItems,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /restaurants/{rid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		RestaurantID: restaurantID,
		Limit:        int32(limit),
		Offset:       int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemResponses := make([]orderItemResponse, len(items))
	for i, item := range items {
		mods, err := h.store.ListOrderItemModifiersByOrderItem(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list order item modifiers: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		itemResponses[i] = dbOrderItemToResponse(item, mods)
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}

	var redemption *redemptionResponse
	if red, err := h.store.GetVoucherRedemptionByOrder(r.Context(), orderID); err == nil {
		voucher, err := h.store.GetVoucher(r.Context(), red.VoucherID)
		if err != nil {
			log.Printf("ERROR: get voucher for redemption: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		redemption = &redemptionResponse{
			VoucherID:   red.VoucherID,
			VoucherCode: voucher.Code,
			RedeemedBy:  red.RedeemedBy,
			RedeemedAt:  red.CreatedAt,
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get voucher redemption: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orderResp := dbOrderToResponse(order)
	orderResp.Items = itemResponses

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: orderResp,
		Payments:      paymentResps,
		Voucher:       redemption,
	})
}

// UpdateStatus handles PATCH /restaurants/{rid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Status:       req.Status,
		Actor:        service.Actor{UserID: claims.UserID, Role: claims.Role},
	})
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// Cancel handles DELETE /restaurants/{rid}/orders/{id}. Cancellation is a
// status transition, so the same state machine rules apply.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Status:       enum.OrderStatusCancelled,
		Actor:        service.Actor{UserID: claims.UserID, Role: claims.Role},
	})
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// AddItem handles POST /restaurants/{rid}/orders/{id}/items.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req createOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Item: service.CreateOrderItemRequest{
			MenuItemID:  req.MenuItemID,
			Quantity:    req.Quantity,
			Notes:       req.Notes,
			ModifierIDs: req.ModifierIDs,
		},
	})
	if err != nil {
		writeServiceError(w, "add order item", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// UpdateItem handles PATCH /restaurants/{rid}/orders/{id}/items/{itemID}.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, itemID, ok := orderItemParams(w, r)
	if !ok {
		return
	}

	var req updateOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.svc.UpdateItem(r.Context(), service.UpdateItemRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		OrderItemID:  itemID,
		Quantity:     req.Quantity,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, "update order item", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// RemoveItem handles DELETE /restaurants/{rid}/orders/{id}/items/{itemID}.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, itemID, ok := orderItemParams(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.RemoveItem(r.Context(), service.RemoveItemRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		OrderItemID:  itemID,
	})
	if err != nil {
		writeServiceError(w, "remove order item", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// UpdateItemStatus handles PATCH /restaurants/{rid}/orders/{id}/items/{itemID}/status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, itemID, ok := orderItemParams(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	item, err := h.svc.UpdateItemStatus(r.Context(), service.UpdateItemStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		OrderItemID:  itemID,
		Status:       req.Status,
		Actor:        service.Actor{UserID: claims.UserID, Role: claims.Role},
	})
	if err != nil {
		writeServiceError(w, "update order item status", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderItemToResponse(*item, nil))
}

// --- Helpers ---

// restaurantScope parses the {rid} path param and the authenticated claims;
// on failure it writes the error response and returns ok=false.
func restaurantScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, *auth.Claims, bool) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return uuid.Nil, nil, false
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return uuid.Nil, nil, false
	}

	return restaurantID, claims, true
}

func orderItemParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order item ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return orderID, itemID, true
}

func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func uuidPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := uuid.UUID(u.Bytes).String()
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		OrderType:   o.OrderType,
		Status:      o.Status,
		TableID:     uuidPtr(o.TableID),
		CustomerID:  uuidPtr(o.CustomerID),
		Subtotal:    numericString(o.Subtotal),
		TaxAmount:   numericString(o.TaxAmount),
		TipAmount:   numericString(o.TipAmount),
		TotalAmount: numericString(o.TotalAmount),
		Notes:       textPtr(o.Notes),
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		CompletedAt: timePtr(o.CompletedAt),
	}
}

func dbOrderItemToResponse(item database.OrderItem, mods []database.OrderItemModifier) orderItemResponse {
	modResps := make([]orderItemModifierResponse, len(mods))
	for i, m := range mods {
		modResps[i] = orderItemModifierResponse{
			ID:         m.ID,
			ModifierID: m.ModifierID,
			UnitPrice:  numericString(m.UnitPrice),
		}
	}
	return orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Quantity:   item.Quantity,
		UnitPrice:  numericString(item.UnitPrice),
		Notes:      textPtr(item.Notes),
		Status:     item.Status,
		Modifiers:  modResps,
	}
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		PaymentMethod: p.PaymentMethod,
		Amount:        numericString(p.Amount),
		Status:        p.Status,
		ProcessedBy:   p.ProcessedBy,
		ProcessedAt:   p.ProcessedAt,
	}
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, ir := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(ir.Item, ir.Modifiers)
	}
	return resp
}
