package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/service"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
type KitchenServicer interface {
	ActiveOrders(ctx context.Context, restaurantID uuid.UUID) ([]service.KitchenOrder, error)
}

// KitchenHandler serves the kitchen display read model.
type KitchenHandler struct {
	svc KitchenServicer
}

func NewKitchenHandler(svc KitchenServicer) *KitchenHandler {
	return &KitchenHandler{svc: svc}
}

// RegisterRoutes registers kitchen endpoints. Mounted at
// /restaurants/{rid}/kitchen.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ActiveOrders)
}

type kitchenOrdersResponse struct {
	Orders []service.KitchenOrder `json:"orders"`
}

// ActiveOrders handles GET /restaurants/{rid}/kitchen/orders.
func (h *KitchenHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	orders, err := h.svc.ActiveOrders(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: kitchen active orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, kitchenOrdersResponse{Orders: orders})
}
