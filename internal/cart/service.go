package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/pricing"
)

// Querier is the subset of database queries the cart depends on.
type Querier interface {
	FindCartItem(ctx context.Context, userID, productID string) (db.CartItem, error)
	InsertCartItem(ctx context.Context, arg db.InsertCartItemParams) (db.CartItem, error)
	UpdateCartItemQty(ctx context.Context, id string, qty int32) error
	DeleteCartItem(ctx context.Context, userID, productID string) error
	ListCartLines(ctx context.Context, userID string) ([]db.CartLine, error)
	GetProductByID(ctx context.Context, id string) (db.Product, error)
}

// Service encapsulates cart operations. Unit prices always come from the
// product catalogue, never from the client.
type Service struct {
	Q Querier
}

// Line is a cart entry rendered for clients.
type Line struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	Qty       int32     `json:"qty"`
	Subtotal  int64     `json:"subtotal"`
	AddedAt   time.Time `json:"added_at"`
}

// View is the full cart payload including the grand total.
type View struct {
	Items []Line `json:"items"`
	Total int64  `json:"total"`
}

// Get returns the user's cart with server-computed totals.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	rows, err := s.Q.ListCartLines(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("list cart: %w", err)
	}
	view := View{Items: make([]Line, 0, len(rows))}
	lines := make([]pricing.Line, 0, len(rows))
	for _, row := range rows {
		view.Items = append(view.Items, Line{
			ProductID: row.ProductID,
			Name:      row.Name,
			UnitPrice: row.UnitPrice,
			Qty:       row.Qty,
			Subtotal:  row.UnitPrice * int64(row.Qty),
			AddedAt:   row.AddedAt,
		})
		lines = append(lines, pricing.Line{Qty: int(row.Qty), UnitPrice: row.UnitPrice})
	}
	view.Total = pricing.Compute(lines).Total
	return view, nil
}

// Add inserts a product into the cart or increments the existing line.
// Adding the same product twice aggregates quantity on one line.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int32) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		qty = 1
	}
	product, err := s.Q.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError(common.CodeNotFound, "product not found", http.StatusNotFound, err)
		}
		return fmt.Errorf("get product: %w", err)
	}

	item, err := s.Q.FindCartItem(ctx, userID, productID)
	if err == nil {
		newQty := item.Qty + qty
		if newQty > product.Stock {
			return insufficientStock(product.Stock)
		}
		return s.Q.UpdateCartItemQty(ctx, item.ID, newQty)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if qty > product.Stock {
		return insufficientStock(product.Stock)
	}
	_, err = s.Q.InsertCartItem(ctx, db.InsertCartItemParams{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Qty:       qty,
	})
	return err
}

// SetQty replaces the quantity of an existing cart line. Zero removes it.
func (s *Service) SetQty(ctx context.Context, userID, productID string, qty int32) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty < 0 {
		return common.NewAppError(common.CodeBadRequest, "qty must not be negative", http.StatusBadRequest, nil)
	}
	if qty == 0 {
		return s.Remove(ctx, userID, productID)
	}
	item, err := s.Q.FindCartItem(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError(common.CodeNotFound, "cart item not found", http.StatusNotFound, err)
		}
		return err
	}
	product, err := s.Q.GetProductByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if qty > product.Stock {
		return insufficientStock(product.Stock)
	}
	return s.Q.UpdateCartItemQty(ctx, item.ID, qty)
}

// Remove deletes a cart line. Removing an absent line is a no-op.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	return s.Q.DeleteCartItem(ctx, userID, productID)
}

func insufficientStock(stock int32) *common.AppError {
	return &common.AppError{
		Code:       "INSUFFICIENT_STOCK",
		Message:    "not enough stock for the requested quantity",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"available": stock},
	}
}
