package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/service"
)

// VoucherServicer defines the service methods needed by voucher handlers.
type VoucherServicer interface {
	Apply(ctx context.Context, req service.ApplyVoucherRequest) (*database.Order, error)
	Remove(ctx context.Context, req service.RemoveVoucherRequest) (*database.Order, error)
}

// VoucherHandler handles voucher application endpoints, mounted under the
// order routes: /restaurants/{rid}/orders/{id}/voucher.
type VoucherHandler struct {
	svc VoucherServicer
}

func NewVoucherHandler(svc VoucherServicer) *VoucherHandler {
	return &VoucherHandler{svc: svc}
}

func (h *VoucherHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/voucher", h.Apply)
	r.Delete("/{id}/voucher", h.Remove)
}

type applyVoucherRequest struct {
	Code string `json:"code"`
}

// Apply handles POST /restaurants/{rid}/orders/{id}/voucher.
func (h *VoucherHandler) Apply(w http.ResponseWriter, r *http.Request) {
	restaurantID, claims, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req applyVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	order, err := h.svc.Apply(r.Context(), service.ApplyVoucherRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Code:         req.Code,
		Actor:        service.Actor{UserID: claims.UserID, Role: claims.Role},
	})
	if err != nil {
		writeServiceError(w, "apply voucher", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*order))
}

// Remove handles DELETE /restaurants/{rid}/orders/{id}/voucher.
func (h *VoucherHandler) Remove(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.Remove(r.Context(), service.RemoveVoucherRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
	})
	if err != nil {
		writeServiceError(w, "remove voucher", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*order))
}
