package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
)

// Querier is the subset of database queries the catalog depends on.
type Querier interface {
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	ListProducts(ctx context.Context) ([]db.Product, error)
	GetProductByID(ctx context.Context, id string) (db.Product, error)
	UpdateProductStock(ctx context.Context, id string, stock int32) (db.Product, error)
}

// Service serves the menu and admin product management.
type Service struct {
	queries  Querier
	cache    *Cache
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(queries Querier, cache *Cache) (*Service, error) {
	if queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{
		queries:  queries,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Product is the public product payload. Prices are in minor units.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Stock       int32     `json:"stock"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateProductInput is an admin request to add a menu item.
type CreateProductInput struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int32  `json:"stock" validate:"gte=0"`
}

// UpdateStockInput is an admin request to restock a menu item.
type UpdateStockInput struct {
	Stock int32 `json:"stock" validate:"gte=0"`
}

// ListProducts returns the full menu, served from cache when warm.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, menuCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.queries.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, convertProduct(row))
	}
	_ = s.cache.SetJSON(ctx, menuCacheKey, items)
	return items, nil
}

// GetProduct returns a single menu item.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	row, err := s.queries.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NewAppError(common.CodeNotFound, "product not found", http.StatusNotFound, err)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return convertProduct(row), nil
}

// CreateProduct adds a menu item. Admin only; the caller enforces the role.
func (s *Service) CreateProduct(ctx context.Context, adminID string, input CreateProductInput) (Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return Product{}, validationError(err)
	}
	row, err := s.queries.CreateProduct(ctx, db.CreateProductParams{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		CreatedBy:   adminID,
	})
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	_ = s.cache.Invalidate(ctx, menuCacheKey)
	return convertProduct(row), nil
}

// UpdateStock replaces a menu item's stock level. Admin only.
func (s *Service) UpdateStock(ctx context.Context, id string, input UpdateStockInput) (Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return Product{}, validationError(err)
	}
	row, err := s.queries.UpdateProductStock(ctx, id, input.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NewAppError(common.CodeNotFound, "product not found", http.StatusNotFound, err)
		}
		return Product{}, fmt.Errorf("update stock: %w", err)
	}
	_ = s.cache.Invalidate(ctx, menuCacheKey)
	return convertProduct(row), nil
}

func convertProduct(p db.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		InStock:     p.Stock > 0,
		CreatedAt:   p.CreatedAt,
	}
}

func validationError(err error) *common.AppError {
	details := map[string]any{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid product payload",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    details,
	}
}
