package db

import "context"

const insertDomainEvent = `
INSERT INTO domain_events (id, topic, aggregate_id, payload)
VALUES ($1, $2, $3, $4)
`

type InsertDomainEventParams struct {
	ID          string
	Topic       string
	AggregateID string
	Payload     []byte
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) error {
	_, err := q.db.Exec(ctx, insertDomainEvent, arg.ID, arg.Topic, arg.AggregateID, arg.Payload)
	return err
}
