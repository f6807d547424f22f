package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/events"
)

// AdminHandler exposes the admin order endpoints.
type AdminHandler struct {
	Q   Querier
	Bus *events.Bus
}

// List handles GET /api/v1/admin/orders.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order handler not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	offset := (page - 1) * perPage
	rows, err := h.Q.ListAllOrders(r.Context(), int32(perPage), int32(offset))
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := h.Q.CountOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := assembleViews(r.Context(), h.Q, rows, true)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Deliver handles PATCH /api/v1/admin/order/{orderId}/deliver. Only paid
// orders can be delivered.
func (h *AdminHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order handler not configured", nil)
		return
	}
	orderID := chi.URLParam(r, "orderId")
	updated, err := h.Q.MarkOrderDelivered(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := h.Q.GetOrderByID(r.Context(), orderID)
			if getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
					return
				}
				writeError(w, getErr)
				return
			}
			common.JSONError(w, http.StatusConflict, common.CodeInvalidState, "only paid orders can be delivered", map[string]any{
				"status": current.Status,
			})
			return
		}
		writeError(w, err)
		return
	}
	if h.Bus != nil {
		_, _ = h.Bus.Emit(r.Context(), events.TopicOrderDelivered, updated.ID, map[string]any{
			"order_id": updated.ID,
			"user_id":  updated.UserID,
			"status":   db.OrderStatusDelivered,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":     updated.ID,
		"status": updated.Status,
	}})
}
