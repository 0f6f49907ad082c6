package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"borneostock-sync/internal/model"
	"borneostock-sync/internal/service"
	"borneostock-sync/internal/store"
	"borneostock-sync/pkg/apierror"
	"borneostock-sync/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ItemsHandler handles inventory item HTTP requests.
type ItemsHandler struct {
	inventory *service.InventoryService
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(inventory *service.InventoryService) *ItemsHandler {
	return &ItemsHandler{inventory: inventory}
}

// serviceError maps service-level errors to API errors.
func serviceError(err error) error {
	var storageErr *store.StorageError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return apierror.NotFound("item not found")
	case errors.Is(err, service.ErrHasVariants):
		return apierror.Conflict("item has linked variants; delete or unlink them first")
	case errors.Is(err, service.ErrStockNegative):
		return apierror.BadRequest("stock cannot go below zero")
	case errors.Is(err, service.ErrNoAdjustment):
		return apierror.BadRequest("adjustment must not be zero")
	case errors.Is(err, model.ErrNameRequired),
		errors.Is(err, model.ErrNegativeStock),
		errors.Is(err, model.ErrNegativePrice),
		errors.Is(err, model.ErrParentVariant):
		return apierror.BadRequest(err.Error())
	case errors.As(err, &storageErr):
		return apierror.ServiceUnavailable("local storage unavailable")
	}
	return err
}

// List handles GET /api/v1/items
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context())
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	response.OK(w, items)
}

// Get handles GET /api/v1/items/{id}
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.inventory.GetItem(r.Context(), id)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, item)
}

// Create handles POST /api/v1/items
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	created, err := h.inventory.AddItem(r.Context(), item)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.Created(w, created)
}

// Update handles PUT /api/v1/items/{id}
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var item model.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	updated, err := h.inventory.UpdateItem(r.Context(), id, item)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, updated)
}

// Delete handles DELETE /api/v1/items/{id}
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.inventory.DeleteItem(r.Context(), id); err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.NoContent(w)
}

// StockRequest is the body for POST /api/v1/items/{id}/stock.
type StockRequest struct {
	Adjustment int    `json:"adjustment"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes,omitempty"`
}

// AdjustStock handles POST /api/v1/items/{id}/stock
func (h *ItemsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	newStock, err := h.inventory.AdjustStock(r.Context(), id, req.Adjustment, req.Reason, req.Notes)
	if err != nil {
		response.Error(w, serviceError(err))
		return
	}
	response.OK(w, map[string]interface{}{
		"item_id":   id,
		"new_stock": newStock,
	})
}

// Watch handles GET /api/v1/items/watch - streams full inventory snapshots
// over SSE, one event per remote change.
func (h *ItemsHandler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, apierror.InternalError("streaming unsupported"))
		return
	}

	snapshots, err := h.inventory.Watch(r.Context())
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("live updates unavailable"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case items, open := <-snapshots:
			if !open {
				return
			}
			data, err := json.Marshal(items)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
