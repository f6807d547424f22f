package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicOrderDelivered = "order.delivered"
	TopicPaymentFailed  = "payment.failed"
	TopicPaymentExpired = "payment.expired"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderDelivered,
		TopicPaymentFailed,
		TopicPaymentExpired,
	}
}
