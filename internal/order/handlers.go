package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
)

// Querier is the subset of database queries order views depend on.
type Querier interface {
	ListOrdersForUser(ctx context.Context, userID string, limit, offset int32) ([]db.Order, error)
	CountOrdersForUser(ctx context.Context, userID string) (int64, error)
	ListAllOrders(ctx context.Context, limit, offset int32) ([]db.Order, error)
	CountOrders(ctx context.Context) (int64, error)
	ListOrderItemsByOrder(ctx context.Context, orderID string) ([]db.OrderItem, error)
	MarkOrderDelivered(ctx context.Context, id string) (db.Order, error)
	GetOrderByID(ctx context.Context, id string) (db.Order, error)
}

// Item is an order line rendered for clients.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int32  `json:"qty"`
	Subtotal  int64  `json:"subtotal"`
}

// View is an order with its lines.
type View struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id,omitempty"`
	Status    db.OrderStatus `json:"status"`
	Total     int64          `json:"total"`
	Currency  string         `json:"currency"`
	Items     []Item         `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Handler exposes the authenticated order history endpoint.
type Handler struct {
	Q Querier
}

// History handles GET /api/v1/user/order/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order handler not configured", nil)
		return
	}
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	offset := (page - 1) * perPage
	rows, err := h.Q.ListOrdersForUser(r.Context(), session.UserID, int32(perPage), int32(offset))
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := h.Q.CountOrdersForUser(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := assembleViews(r.Context(), h.Q, rows, false)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

func assembleViews(ctx context.Context, q Querier, rows []db.Order, includeUser bool) ([]View, error) {
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		items, err := q.ListOrderItemsByOrder(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		view := View{
			ID:        row.ID,
			Status:    row.Status,
			Total:     row.TotalAmount,
			Currency:  row.Currency,
			Items:     make([]Item, 0, len(items)),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
		if includeUser {
			view.UserID = row.UserID
		}
		for _, item := range items {
			view.Items = append(view.Items, Item{
				ProductID: item.ProductID,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Qty:       item.Qty,
				Subtotal:  item.Subtotal,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal server error", nil)
}
