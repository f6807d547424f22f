package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/events"
	"github.com/smartcanteen/backend-canteen/internal/obs"
)

// Querier is the subset of database queries payment verification depends on.
type Querier interface {
	GetOrderByIDForUser(ctx context.Context, id, userID string) (db.Order, error)
	GetOrderByID(ctx context.Context, id string) (db.Order, error)
	UpdateOrderStatusIfPending(ctx context.Context, id string, status db.OrderStatus) (db.Order, error)
	CreatePayment(ctx context.Context, arg db.CreatePaymentParams) (db.Payment, error)
	ListOrderItemsByOrder(ctx context.Context, orderID string) ([]db.OrderItem, error)
	DecrementProductStock(ctx context.Context, id string, qty int32) error
	ClearCart(ctx context.Context, userID string) error
}

// TxRunner executes fn against a transaction-scoped query set.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Querier) error) error
}

// PgTxRunner implements TxRunner on pgx.
type PgTxRunner struct {
	Pool *pgxpool.Pool
	Q    *db.Queries
}

func (r PgTxRunner) RunInTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(r.Q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Service finalises orders from gateway checkout callbacks.
type Service struct {
	Q        Querier
	Provider Provider
	Redis    *redis.Client
	Bus      *events.Bus

	// Tx, when set, wraps each finalisation's writes in one transaction so
	// a paid order never lands without its payment row and settlement.
	Tx TxRunner

	// ReplayTTL bounds how long a consumed gateway payment id blocks
	// replays. Zero keeps the guard for 24 hours.
	ReplayTTL time.Duration
}

// VerifyInput is the checkout callback payload posted by the frontend after
// the gateway widget completes.
type VerifyInput struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

// VerifyResult reports the final order state after verification.
type VerifyResult struct {
	OrderID string         `json:"order_id"`
	Status  db.OrderStatus `json:"status"`
}

// Verify authenticates the callback signature and finalises the order.
// A valid signature moves pending to paid exactly once; an invalid one moves
// pending to failed. Replays of an already-consumed callback return the
// current state without re-running side effects.
func (s *Service) Verify(ctx context.Context, session common.Session, input VerifyInput) (VerifyResult, error) {
	if s == nil || s.Q == nil || s.Provider == nil {
		return VerifyResult{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Verify")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.verify.result", result))
		if obs.PaymentVerifyTotal != nil {
			obs.PaymentVerifyTotal.WithLabelValues(result).Inc()
		}
	}()

	if input.OrderID == "" || input.GatewayOrderID == "" || input.GatewayPaymentID == "" {
		return VerifyResult{}, common.NewAppError(common.CodeBadRequest, "order id, gateway order id, and payment id are required", http.StatusBadRequest, nil)
	}
	span.SetAttributes(attribute.String("order.id", input.OrderID))

	order, err := s.Q.GetOrderByIDForUser(ctx, input.OrderID, session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerifyResult{}, common.NewAppError(common.CodeNotFound, "order not found", http.StatusNotFound, err)
		}
		return VerifyResult{}, fmt.Errorf("get order: %w", err)
	}
	if order.GatewayOrderID == "" || order.GatewayOrderID != input.GatewayOrderID {
		return VerifyResult{}, common.NewAppError(common.CodeVerificationFailed, "gateway order does not match", http.StatusUnprocessableEntity, nil)
	}

	if !s.Provider.VerifySignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		res, err := s.finalize(ctx, order, input, db.OrderStatusFailed)
		if err != nil {
			return VerifyResult{}, err
		}
		result = "invalid_signature"
		return res, common.NewAppError(common.CodeVerificationFailed, "payment signature verification failed", http.StatusUnprocessableEntity, nil)
	}

	consumed, err := s.consumeCallback(ctx, input.GatewayPaymentID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("replay guard: %w", err)
	}
	if !consumed {
		// Callback already processed. Report the current state.
		current, err := s.Q.GetOrderByID(ctx, order.ID)
		if err != nil {
			return VerifyResult{}, fmt.Errorf("get order: %w", err)
		}
		result = "replay"
		return VerifyResult{OrderID: current.ID, Status: current.Status}, nil
	}

	res, err := s.finalize(ctx, order, input, db.OrderStatusPaid)
	if err != nil {
		// Return the claimed callback id so a retry of this capture is not
		// mistaken for a replay while the order is still pending.
		s.releaseCallback(ctx, input.GatewayPaymentID)
		return VerifyResult{}, err
	}
	result = "success"
	return res, nil
}

// finalize runs the guarded pending transition and its side effects, in one
// transaction when a TxRunner is configured. When the order already left
// pending the current state is returned untouched.
func (s *Service) finalize(ctx context.Context, order db.Order, input VerifyInput, target db.OrderStatus) (VerifyResult, error) {
	var res VerifyResult
	var finalOrder db.Order
	var transitioned bool

	err := s.runWrites(ctx, func(q Querier) error {
		updated, err := q.UpdateOrderStatusIfPending(ctx, order.ID, target)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				current, err := q.GetOrderByID(ctx, order.ID)
				if err != nil {
					return fmt.Errorf("get order: %w", err)
				}
				res = VerifyResult{OrderID: current.ID, Status: current.Status}
				return nil
			}
			return fmt.Errorf("update order status: %w", err)
		}

		paymentStatus := db.PaymentStatusCaptured
		if target == db.OrderStatusFailed {
			paymentStatus = db.PaymentStatusFailed
		}
		if _, err := q.CreatePayment(ctx, db.CreatePaymentParams{
			ID:               uuid.NewString(),
			OrderID:          updated.ID,
			GatewayOrderID:   input.GatewayOrderID,
			GatewayPaymentID: input.GatewayPaymentID,
			Status:           paymentStatus,
			Amount:           updated.TotalAmount,
			Payload:          []byte("{}"),
		}); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		if target == db.OrderStatusPaid {
			if err := s.settlePaidOrder(ctx, q, updated); err != nil {
				return err
			}
		}
		transitioned = true
		finalOrder = updated
		res = VerifyResult{OrderID: updated.ID, Status: updated.Status}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	// Events go out only after the transaction committed.
	if transitioned {
		if target == db.OrderStatusPaid {
			s.emit(ctx, events.TopicOrderPaid, finalOrder)
		} else {
			s.emit(ctx, events.TopicPaymentFailed, finalOrder)
		}
	}
	return res, nil
}

func (s *Service) runWrites(ctx context.Context, fn func(Querier) error) error {
	if s.Tx != nil {
		return s.Tx.RunInTx(ctx, fn)
	}
	return fn(s.Q)
}

// settlePaidOrder decrements stock for every line and drains the cart.
func (s *Service) settlePaidOrder(ctx context.Context, q Querier, order db.Order) error {
	items, err := q.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if err := q.DecrementProductStock(ctx, item.ProductID, item.Qty); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Oversold between checkout and payment. The order stays
				// paid; stock reconciliation is an operator concern.
				continue
			}
			return fmt.Errorf("decrement stock: %w", err)
		}
	}
	if err := q.ClearCart(ctx, order.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// consumeCallback claims the gateway payment id. It reports false when the
// id was already consumed by an earlier callback.
func (s *Service) consumeCallback(ctx context.Context, gatewayPaymentID string) (bool, error) {
	if s.Redis == nil {
		return true, nil
	}
	ttl := s.ReplayTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.Redis.SetNX(ctx, callbackKey(gatewayPaymentID), "1", ttl).Result()
}

// releaseCallback drops a claimed gateway payment id after a failed
// finalisation.
func (s *Service) releaseCallback(ctx context.Context, gatewayPaymentID string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx, callbackKey(gatewayPaymentID)).Err()
}

func callbackKey(gatewayPaymentID string) string {
	return "payment:callback:" + common.Sha256Hex(gatewayPaymentID)
}

func (s *Service) emit(ctx context.Context, topic string, order db.Order) {
	if s.Bus == nil {
		return
	}
	_, _ = s.Bus.Emit(ctx, topic, order.ID, map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
		"amount":   order.TotalAmount,
		"currency": order.Currency,
	})
}
