package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/events"
	"github.com/smartcanteen/backend-canteen/internal/lock"
	"github.com/smartcanteen/backend-canteen/internal/obs"
	"github.com/smartcanteen/backend-canteen/internal/payment"
	"github.com/smartcanteen/backend-canteen/internal/pricing"
)

// Service turns a cart into a pending order backed by a gateway order.
type Service struct {
	Store    Store
	Provider payment.Provider
	Locker   lock.Locker
	Bus      *events.Bus
	Currency string
	LockTTL  time.Duration
}

// Output is the checkout session the frontend needs to open the gateway
// widget. Amount is in minor units and always equals the order total.
type Output struct {
	OrderID        string `json:"order_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ClientKey      string `json:"key"`
}

// Create snapshots the cart into a pending order and opens a gateway order
// for its total. Repeating checkout with an unchanged cart reuses the live
// pending order instead of opening a second one; the per-user lock closes
// the window where two concurrent requests could both create orders.
func (s *Service) Create(ctx context.Context, userID string) (Output, error) {
	if s == nil || s.Store == nil || s.Provider == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Create")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("checkout.result", result))
		if obs.OrdersCreatedTotal != nil {
			obs.OrdersCreatedTotal.WithLabelValues(result).Inc()
		}
	}()

	var out Output
	run := func(ctx context.Context) error {
		var err error
		out, result, err = s.create(ctx, userID)
		return err
	}
	if s.Locker.R == nil {
		return out, run(ctx)
	}
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if err := s.Locker.WithLock(ctx, "checkout:user:"+userID, ttl, run); err != nil {
		return Output{}, err
	}
	return out, nil
}

func (s *Service) create(ctx context.Context, userID string) (Output, string, error) {
	lines, err := s.Store.ListCartLines(ctx, userID)
	if err != nil {
		return Output{}, "error", fmt.Errorf("list cart: %w", err)
	}
	if len(lines) == 0 {
		return Output{}, "empty_cart", common.NewAppError(common.CodeEmptyCart, "cart is empty", http.StatusBadRequest, nil)
	}

	hash := cartFingerprint(lines)

	if existing, err := s.Store.GetPendingOrderByCartHash(ctx, userID, hash); err == nil {
		return Output{
			OrderID:        existing.ID,
			GatewayOrderID: existing.GatewayOrderID,
			Amount:         existing.TotalAmount,
			Currency:       existing.Currency,
			ClientKey:      s.Provider.ClientKey(),
		}, "reused", nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Output{}, "error", fmt.Errorf("find pending order: %w", err)
	}

	pricingLines := make([]pricing.Line, 0, len(lines))
	items := make([]db.CreateOrderItemParams, 0, len(lines))
	for _, line := range lines {
		pricingLines = append(pricingLines, pricing.Line{Qty: int(line.Qty), UnitPrice: line.UnitPrice})
		items = append(items, db.CreateOrderItemParams{
			ID:        uuid.NewString(),
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Qty:       line.Qty,
			Subtotal:  line.UnitPrice * int64(line.Qty),
		})
	}
	summary := pricing.Compute(pricingLines)

	currency := s.Currency
	if currency == "" {
		currency = "INR"
	}
	order, err := s.Store.CreateOrderWithItems(ctx, db.CreateOrderParams{
		ID:          uuid.NewString(),
		UserID:      userID,
		Status:      db.OrderStatusPending,
		TotalAmount: summary.Total,
		Currency:    currency,
		CartHash:    hash,
	}, items)
	if err != nil {
		return Output{}, "error", fmt.Errorf("create order: %w", err)
	}

	gateway, err := s.Provider.CreateGatewayOrder(ctx, payment.GatewayOrderRequest{
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Receipt:  order.ID,
		Notes:    map[string]string{"user_id": userID},
	})
	if obs.GatewayOrderTotal != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		obs.GatewayOrderTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		// The pending order stays behind without a gateway order id; the
		// sweeper expires it. Surface the gateway failure to the client.
		return Output{}, "gateway_error", common.NewAppError(common.CodeGatewayUnavailable, "payment gateway is unavailable", http.StatusBadGateway, err)
	}

	order, err = s.Store.SetOrderGateway(ctx, order.ID, gateway.GatewayOrderID)
	if err != nil {
		return Output{}, "error", fmt.Errorf("attach gateway order: %w", err)
	}

	if s.Bus != nil {
		_, _ = s.Bus.Emit(ctx, events.TopicOrderCreated, order.ID, map[string]any{
			"order_id": order.ID,
			"user_id":  userID,
			"amount":   order.TotalAmount,
			"currency": order.Currency,
		})
	}

	return Output{
		OrderID:        order.ID,
		GatewayOrderID: order.GatewayOrderID,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		ClientKey:      s.Provider.ClientKey(),
	}, "success", nil
}

// cartFingerprint derives a stable hash of the cart contents. Two carts with
// the same products, quantities, and unit prices produce the same value.
func cartFingerprint(lines []db.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s:%d:%d", line.ProductID, line.Qty, line.UnitPrice))
	}
	sort.Strings(parts)
	return common.Sha256Hex(strings.Join(parts, "|"))
}
