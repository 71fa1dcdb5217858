package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tavolo-pos/api/internal/database"
)

// TableStore defines the database methods needed by table handlers.
type TableStore interface {
	ListTables(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error)
}

// TableHandler serves the floor view: every table with its occupancy status.
type TableHandler struct {
	store TableStore
}

func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints. Mounted at
// /restaurants/{rid}/tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type tableResponse struct {
	ID       uuid.UUID `json:"id"`
	Number   int32     `json:"number"`
	Capacity int32     `json:"capacity"`
	Status   string    `json:"status"`
}

type tableListResponse struct {
	Tables []tableResponse `json:"tables"`
}

// List handles GET /restaurants/{rid}/tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, _, ok := restaurantScope(w, r)
	if !ok {
		return
	}

	tables, err := h.store.ListTables(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{
			ID:       t.ID,
			Number:   t.Number,
			Capacity: t.Capacity,
			Status:   t.Status,
		}
	}

	writeJSON(w, http.StatusOK, tableListResponse{Tables: resp})
}
