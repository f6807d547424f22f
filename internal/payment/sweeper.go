package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/events"
	"github.com/smartcanteen/backend-canteen/internal/lock"
	"github.com/smartcanteen/backend-canteen/internal/obs"
)

const sweepLockKey = "sweep:pending-orders"

// SweeperQuerier is the subset of database queries the sweeper depends on.
type SweeperQuerier interface {
	ListStalePendingOrders(ctx context.Context, cutoff time.Time, limit int32) ([]db.Order, error)
	UpdateOrderStatusIfPending(ctx context.Context, id string, status db.OrderStatus) (db.Order, error)
}

// Sweeper expires abandoned pending orders. Orders whose checkout session
// was never completed flip to failed after PendingTTL.
type Sweeper struct {
	Q          SweeperQuerier
	Locker     lock.Locker
	Bus        *events.Bus
	Logger     zerolog.Logger
	Interval   time.Duration
	PendingTTL time.Duration
	BatchSize  int32
	now        func() time.Time
}

// WithNow allows tests to override the time provider.
func (s *Sweeper) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil || s.Q == nil {
		return errors.New("sweeper not configured")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil && !errors.Is(err, lock.ErrNotAcquired) {
				s.Logger.Error().Err(err).Msg("pending order sweep failed")
			}
		}
	}
}

// SweepOnce expires one batch of stale pending orders. The distributed lock
// keeps concurrent workers from double-sweeping; lock.ErrNotAcquired means
// another worker is already on it.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	ttl := s.PendingTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = 100
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	sweep := func(ctx context.Context) error {
		stale, err := s.Q.ListStalePendingOrders(ctx, now().Add(-ttl), batch)
		if err != nil {
			return fmt.Errorf("list stale pending orders: %w", err)
		}
		for _, order := range stale {
			updated, err := s.Q.UpdateOrderStatusIfPending(ctx, order.ID, db.OrderStatusFailed)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					// Finalized concurrently by a verify callback.
					continue
				}
				return fmt.Errorf("expire order %s: %w", order.ID, err)
			}
			if obs.PendingOrdersSwept != nil {
				obs.PendingOrdersSwept.Inc()
			}
			s.Logger.Info().Str("order_id", updated.ID).Msg("expired abandoned pending order")
			if s.Bus != nil {
				_, _ = s.Bus.Emit(ctx, events.TopicPaymentExpired, updated.ID, map[string]any{
					"order_id": updated.ID,
					"user_id":  updated.UserID,
				})
			}
		}
		return nil
	}
	if s.Locker.R == nil {
		return sweep(ctx)
	}
	return s.Locker.TryWithLock(ctx, sweepLockKey, ttlForLock(ttl), sweep)
}

func ttlForLock(pendingTTL time.Duration) time.Duration {
	if pendingTTL < time.Minute {
		return pendingTTL
	}
	return time.Minute
}
