package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/db"
	"github.com/smartcanteen/backend-canteen/internal/events"
)

type memStore struct {
	inserted []db.InsertDomainEventParams
	err      error
}

func (m *memStore) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, arg)
	return nil
}

type captureNotifier struct {
	events []db.DomainEvent
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, ev db.DomainEvent) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	first := &captureNotifier{}
	second := &captureNotifier{}
	bus := events.NewBus(store, first, second)

	ev, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", map[string]string{"order_id": "order-1"})
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)
	require.Equal(t, events.TopicOrderCreated, ev.Topic)

	require.Len(t, store.inserted, 1)
	require.Equal(t, ev.ID, store.inserted[0].ID)
	require.JSONEq(t, `{"order_id":"order-1"}`, string(store.inserted[0].Payload))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
}

func TestEmitNotifierFailureIsNotFatal(t *testing.T) {
	store := &memStore{}
	failing := &captureNotifier{err: errors.New("boom")}
	bus := events.NewBus(store, failing)

	ev, err := bus.Emit(context.Background(), events.TopicOrderPaid, "order-2", nil)
	require.Error(t, err)
	require.NotEmpty(t, ev.ID)
	require.Len(t, store.inserted, 1)
}

func TestEmitStoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	notifier := &captureNotifier{}
	bus := events.NewBus(store, notifier)

	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, "order-3", nil)
	require.Error(t, err)
	require.Empty(t, notifier.events, "notifiers must not run when persistence fails")
}

func TestEmitValidation(t *testing.T) {
	bus := events.NewBus(&memStore{})

	_, err := bus.Emit(context.Background(), "  ", "order-1", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicOrderPaid, "", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicOrderPaid, "order-1", json.RawMessage("not json"))
	require.Error(t, err)
}

func TestEmitPayloadDefaults(t *testing.T) {
	store := &memStore{}
	bus := events.NewBus(store)

	_, err := bus.Emit(context.Background(), events.TopicPaymentExpired, "order-4", "")
	require.NoError(t, err)
	require.Equal(t, "{}", string(store.inserted[0].Payload))
}
