// Package notify delivers order lifecycle notifications through an asynq
// task queue so HTTP requests never block on delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/smartcanteen/backend-canteen/internal/db"
)

// TaskOrderEvent is the asynq task type for order lifecycle notifications.
const TaskOrderEvent = "notify:order-event"

// OrderEventPayload is the task payload written by the enqueuer and read by
// the worker.
type OrderEventPayload struct {
	EventID     string          `json:"event_id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Enqueuer implements events.Notifier by pushing every event onto the task
// queue. A nil client disables enqueueing.
type Enqueuer struct {
	Client *asynq.Client
}

// Notify enqueues the event for asynchronous delivery.
func (e Enqueuer) Notify(_ context.Context, event db.DomainEvent) error {
	if e.Client == nil {
		return nil
	}
	body, err := json.Marshal(OrderEventPayload{
		EventID:     event.ID,
		Topic:       event.Topic,
		AggregateID: event.AggregateID,
		Payload:     event.Payload,
	})
	if err != nil {
		return fmt.Errorf("notify: encode task: %w", err)
	}
	task := asynq.NewTask(TaskOrderEvent, body, asynq.MaxRetry(5), asynq.Queue("notifications"))
	if _, err := e.Client.Enqueue(task); err != nil {
		return fmt.Errorf("notify: enqueue: %w", err)
	}
	return nil
}

// Worker processes queued notifications. Delivery is currently a structured
// log line; the handler is the seam for email or push integrations.
type Worker struct {
	Logger zerolog.Logger
}

// HandleOrderEvent implements the asynq handler for TaskOrderEvent.
func (w Worker) HandleOrderEvent(_ context.Context, task *asynq.Task) error {
	var payload OrderEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("notify: decode task: %w", err)
	}
	w.Logger.Info().
		Str("event_id", payload.EventID).
		Str("topic", payload.Topic).
		Str("aggregate_id", payload.AggregateID).
		Msg("order event notification")
	return nil
}

// Mux returns an asynq mux with all notification handlers registered.
func (w Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskOrderEvent, w.HandleOrderEvent)
	return mux
}
