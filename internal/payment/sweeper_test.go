package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/lock"
	"github.com/smartcanteen/backend-canteen/internal/payment"
)

type memSweepQuerier struct {
	orders map[string]db.Order
}

func (m *memSweepQuerier) ListStalePendingOrders(_ context.Context, cutoff time.Time, limit int32) ([]db.Order, error) {
	var stale []db.Order
	for _, order := range m.orders {
		if order.Status == db.OrderStatusPending && order.CreatedAt.Before(cutoff) {
			stale = append(stale, order)
		}
		if int32(len(stale)) >= limit {
			break
		}
	}
	return stale, nil
}

func (m *memSweepQuerier) UpdateOrderStatusIfPending(_ context.Context, id string, status db.OrderStatus) (db.Order, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != db.OrderStatusPending {
		return db.Order{}, pgx.ErrNoRows
	}
	order.Status = status
	m.orders[id] = order
	return order, nil
}

func TestSweepOnceExpiresStalePending(t *testing.T) {
	now := time.Now()
	q := &memSweepQuerier{orders: map[string]db.Order{
		"stale": {ID: "stale", UserID: "user-1", Status: db.OrderStatusPending, CreatedAt: now.Add(-time.Hour)},
		"fresh": {ID: "fresh", UserID: "user-2", Status: db.OrderStatusPending, CreatedAt: now.Add(-time.Minute)},
		"paid":  {ID: "paid", UserID: "user-3", Status: db.OrderStatusPaid, CreatedAt: now.Add(-time.Hour)},
	}}
	sweeper := &payment.Sweeper{Q: q, Logger: zerolog.Nop(), PendingTTL: 30 * time.Minute}
	sweeper.WithNow(func() time.Time { return now })

	require.NoError(t, sweeper.SweepOnce(context.Background()))

	require.Equal(t, db.OrderStatusFailed, q.orders["stale"].Status)
	require.Equal(t, db.OrderStatusPending, q.orders["fresh"].Status)
	require.Equal(t, db.OrderStatusPaid, q.orders["paid"].Status)
}

func TestSweepOnceSkipsConcurrentlyFinalized(t *testing.T) {
	now := time.Now()
	q := &memSweepQuerier{orders: map[string]db.Order{
		"racy": {ID: "racy", UserID: "user-1", Status: db.OrderStatusPaid, CreatedAt: now.Add(-time.Hour)},
	}}
	sweeper := &payment.Sweeper{Q: q, Logger: zerolog.Nop(), PendingTTL: 30 * time.Minute}
	sweeper.WithNow(func() time.Time { return now })

	require.NoError(t, sweeper.SweepOnce(context.Background()))
	require.Equal(t, db.OrderStatusPaid, q.orders["racy"].Status)
}

func TestSweepOnceRespectsLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "sweep:pending-orders", "other-worker", time.Minute).Err())

	now := time.Now()
	q := &memSweepQuerier{orders: map[string]db.Order{
		"stale": {ID: "stale", UserID: "user-1", Status: db.OrderStatusPending, CreatedAt: now.Add(-time.Hour)},
	}}
	sweeper := &payment.Sweeper{Q: q, Locker: lock.Locker{R: client}, Logger: zerolog.Nop(), PendingTTL: 30 * time.Minute}
	sweeper.WithNow(func() time.Time { return now })

	err := sweeper.SweepOnce(context.Background())
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.Equal(t, db.OrderStatusPending, q.orders["stale"].Status)
}
