package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcanteen/backend-canteen/internal/db"
)

// Store is the persistence surface checkout depends on.
type Store interface {
	ListCartLines(ctx context.Context, userID string) ([]db.CartLine, error)
	GetPendingOrderByCartHash(ctx context.Context, userID, cartHash string) (db.Order, error)
	CreateOrderWithItems(ctx context.Context, order db.CreateOrderParams, items []db.CreateOrderItemParams) (db.Order, error)
	SetOrderGateway(ctx context.Context, id, gatewayOrderID string) (db.Order, error)
}

// PgStore implements Store on pgx. Order and items are written in one
// transaction so a crash never leaves an order without its lines.
type PgStore struct {
	Pool *pgxpool.Pool
	Q    *db.Queries
}

func (s PgStore) ListCartLines(ctx context.Context, userID string) ([]db.CartLine, error) {
	return s.Q.ListCartLines(ctx, userID)
}

func (s PgStore) GetPendingOrderByCartHash(ctx context.Context, userID, cartHash string) (db.Order, error) {
	return s.Q.GetPendingOrderByCartHash(ctx, userID, cartHash)
}

func (s PgStore) CreateOrderWithItems(ctx context.Context, order db.CreateOrderParams, items []db.CreateOrderItemParams) (db.Order, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return db.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)
	created, err := qtx.CreateOrder(ctx, order)
	if err != nil {
		return db.Order{}, err
	}
	for _, item := range items {
		item.OrderID = created.ID
		if err := qtx.CreateOrderItem(ctx, item); err != nil {
			return db.Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Order{}, err
	}
	return created, nil
}

func (s PgStore) SetOrderGateway(ctx context.Context, id, gatewayOrderID string) (db.Order, error) {
	return s.Q.SetOrderGateway(ctx, id, gatewayOrderID)
}
