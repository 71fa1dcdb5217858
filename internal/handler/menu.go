package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/database"
)

// MenuStore defines the database methods needed by menu handlers.
type MenuStore interface {
	ListAvailableMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, error)
}

// MenuHandler serves the orderable menu.
type MenuHandler struct {
	store MenuStore
}

func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints. Mounted at
// /restaurants/{rid}/menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.ListItems)
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Price           string    `json:"price"`
	PrepTimeMinutes int32     `json:"prep_time_minutes"`
}

type menuItemListResponse struct {
	Items []menuItemResponse `json:"items"`
}

// ListItems handles GET /restaurants/{rid}/menu/items. Only available
// items are returned; unavailable ones cannot be ordered anyway.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListAvailableMenuItems(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = menuItemResponse{
			ID:              item.ID,
			Name:            item.Name,
			Price:           numericString(item.Price),
			PrepTimeMinutes: item.PrepTimeMinutes,
		}
	}

	writeJSON(w, http.StatusOK, menuItemListResponse{Items: resp})
}
