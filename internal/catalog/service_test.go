package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/catalog"
	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
)

type memQuerier struct {
	products  map[string]db.Product
	listCalls int
}

func newMemQuerier() *memQuerier {
	return &memQuerier{products: map[string]db.Product{}}
}

func (m *memQuerier) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	p := db.Product{
		ID:          arg.ID,
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		Stock:       arg.Stock,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *memQuerier) ListProducts(_ context.Context) ([]db.Product, error) {
	m.listCalls++
	out := make([]db.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memQuerier) GetProductByID(_ context.Context, id string) (db.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memQuerier) UpdateProductStock(_ context.Context, id string, stock int32) (db.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	p.Stock = stock
	m.products[id] = p
	return p, nil
}

func newCachedService(t *testing.T, q catalog.Querier) *catalog.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, err := catalog.NewService(q, catalog.NewCache(client, time.Minute))
	require.NoError(t, err)
	return svc
}

func TestCreateProductValidation(t *testing.T) {
	svc := newCachedService(t, newMemQuerier())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, "admin-1", catalog.CreateProductInput{Name: "", Price: 5000})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Contains(t, appErr.Details, "Name")

	_, err = svc.CreateProduct(ctx, "admin-1", catalog.CreateProductInput{Name: "Chai", Price: 0})
	require.True(t, errors.As(err, &appErr))
	require.Contains(t, appErr.Details, "Price")

	_, err = svc.CreateProduct(ctx, "admin-1", catalog.CreateProductInput{Name: "Chai", Price: 2000, Stock: -1})
	require.True(t, errors.As(err, &appErr))
	require.Contains(t, appErr.Details, "Stock")
}

func TestCreateProductAndGet(t *testing.T) {
	q := newMemQuerier()
	svc := newCachedService(t, q)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "admin-1", catalog.CreateProductInput{Name: "Chai", Price: 2000, Stock: 5})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, created.InStock)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, int64(2000), got.Price)
}

func TestGetProductNotFound(t *testing.T) {
	svc := newCachedService(t, newMemQuerier())
	_, err := svc.GetProduct(context.Background(), "ghost")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeNotFound, appErr.Code)
}

func TestListProductsServesFromCache(t *testing.T) {
	q := newMemQuerier()
	svc := newCachedService(t, q)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, "admin-1", catalog.CreateProductInput{Name: "Chai", Price: 2000, Stock: 5})
	require.NoError(t, err)

	first, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, q.listCalls, "second list must be served from cache")
}

func TestUpdateStockInvalidatesCache(t *testing.T) {
	q := newMemQuerier()
	svc := newCachedService(t, q)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, "admin-1", catalog.CreateProductInput{Name: "Chai", Price: 2000, Stock: 5})
	require.NoError(t, err)

	_, err = svc.ListProducts(ctx)
	require.NoError(t, err)

	updated, err := svc.UpdateStock(ctx, created.ID, catalog.UpdateStockInput{Stock: 0})
	require.NoError(t, err)
	require.False(t, updated.InStock)

	listed, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(0), listed[0].Stock)
	require.Equal(t, 2, q.listCalls, "stock change must bust the menu cache")
}

func TestUpdateStockUnknownProduct(t *testing.T) {
	svc := newCachedService(t, newMemQuerier())
	_, err := svc.UpdateStock(context.Background(), "ghost", catalog.UpdateStockInput{Stock: 5})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeNotFound, appErr.Code)
}
