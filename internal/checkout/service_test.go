package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/checkout"
	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/payment"
)

type memStore struct {
	lines   []db.CartLine
	pending map[string]db.Order
	created []db.Order
	items   map[string][]db.CreateOrderItemParams
}

func newMemStore(lines ...db.CartLine) *memStore {
	return &memStore{
		lines:   lines,
		pending: map[string]db.Order{},
		items:   map[string][]db.CreateOrderItemParams{},
	}
}

func (m *memStore) ListCartLines(_ context.Context, _ string) ([]db.CartLine, error) {
	return m.lines, nil
}

func (m *memStore) GetPendingOrderByCartHash(_ context.Context, userID, cartHash string) (db.Order, error) {
	order, ok := m.pending[userID+"/"+cartHash]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return order, nil
}

func (m *memStore) CreateOrderWithItems(_ context.Context, order db.CreateOrderParams, items []db.CreateOrderItemParams) (db.Order, error) {
	created := db.Order{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		CartHash:    order.CartHash,
	}
	m.created = append(m.created, created)
	m.items[created.ID] = items
	return created, nil
}

func (m *memStore) SetOrderGateway(_ context.Context, id, gatewayOrderID string) (db.Order, error) {
	for i, order := range m.created {
		if order.ID == id {
			m.created[i].GatewayOrderID = gatewayOrderID
			m.pending[order.UserID+"/"+order.CartHash] = m.created[i]
			return m.created[i], nil
		}
	}
	return db.Order{}, pgx.ErrNoRows
}

type fakeProvider struct {
	calls int
	err   error
}

func (f *fakeProvider) CreateGatewayOrder(_ context.Context, req payment.GatewayOrderRequest) (payment.GatewayOrderResponse, error) {
	f.calls++
	if f.err != nil {
		return payment.GatewayOrderResponse{}, f.err
	}
	return payment.GatewayOrderResponse{
		GatewayOrderID: "order_rzp_test",
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         "created",
	}, nil
}

func (f *fakeProvider) VerifySignature(_, _, _ string) bool { return true }

func (f *fakeProvider) ClientKey() string { return "rzp_test_key" }

func sampleLines() []db.CartLine {
	return []db.CartLine{
		{ProductID: "dosa", Name: "Masala Dosa", UnitPrice: 5000, Qty: 2, Stock: 10},
		{ProductID: "chai", Name: "Chai", UnitPrice: 2000, Qty: 1, Stock: 10},
	}
}

func TestCreateOpensGatewayOrderForCartTotal(t *testing.T) {
	store := newMemStore(sampleLines()...)
	provider := &fakeProvider{}
	svc := &checkout.Service{Store: store, Provider: provider, Currency: "INR"}

	out, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(12000), out.Amount)
	require.Equal(t, "INR", out.Currency)
	require.Equal(t, "order_rzp_test", out.GatewayOrderID)
	require.Equal(t, "rzp_test_key", out.ClientKey)

	require.Len(t, store.created, 1)
	require.Equal(t, db.OrderStatusPending, store.created[0].Status)
	require.Len(t, store.items[out.OrderID], 2)
}

func TestCreateEmptyCart(t *testing.T) {
	svc := &checkout.Service{Store: newMemStore(), Provider: &fakeProvider{}}

	_, err := svc.Create(context.Background(), "user-1")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeEmptyCart, appErr.Code)
}

func TestCreateReusesPendingOrderForSameCart(t *testing.T) {
	store := newMemStore(sampleLines()...)
	provider := &fakeProvider{}
	svc := &checkout.Service{Store: store, Provider: provider, Currency: "INR"}
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1")
	require.NoError(t, err)

	second, err := svc.Create(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, first.OrderID, second.OrderID)
	require.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	require.Equal(t, 1, provider.calls, "unchanged cart must not open a second gateway order")
}

func TestCreateChangedCartGetsNewOrder(t *testing.T) {
	store := newMemStore(sampleLines()...)
	provider := &fakeProvider{}
	svc := &checkout.Service{Store: store, Provider: provider, Currency: "INR"}
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1")
	require.NoError(t, err)

	store.lines = append(store.lines, db.CartLine{ProductID: "samosa", Name: "Samosa", UnitPrice: 1500, Qty: 2, Stock: 5})
	second, err := svc.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, first.OrderID, second.OrderID)
	require.Equal(t, int64(15000), second.Amount)
}

func TestCreateGatewayFailure(t *testing.T) {
	store := newMemStore(sampleLines()...)
	provider := &fakeProvider{err: errors.New("upstream timeout")}
	svc := &checkout.Service{Store: store, Provider: provider, Currency: "INR"}

	_, err := svc.Create(context.Background(), "user-1")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeGatewayUnavailable, appErr.Code)

	// The pending order is left behind for the sweeper; it never becomes
	// reusable because it has no gateway order id.
	require.Len(t, store.created, 1)
	require.Empty(t, store.created[0].GatewayOrderID)
	require.Empty(t, store.pending)
}
