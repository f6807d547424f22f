package db

import "time"

// OrderStatus enumerates the order lifecycle. Transitions only move forward:
// pending -> paid | failed, paid -> delivered.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusDelivered OrderStatus = "delivered"
)

// PaymentStatus enumerates gateway payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusFailed   PaymentStatus = "failed"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Product struct {
	ID          string
	Name        string
	Description string
	// Price is stored in minor units (paisa).
	Price     int64
	Stock     int32
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        string
	UserID    string
	ProductID string
	Qty       int32
	CreatedAt time.Time
}

// CartLine is a cart item joined against the product catalogue. Unit prices
// come from the products table at read time, never from the client.
type CartLine struct {
	ProductID string
	Name      string
	UnitPrice int64
	Qty       int32
	Stock     int32
	AddedAt   time.Time
}

type Order struct {
	ID             string
	UserID         string
	Status         OrderStatus
	TotalAmount    int64
	Currency       string
	CartHash       string
	GatewayOrderID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	UnitPrice int64
	Qty       int32
	Subtotal  int64
}

type Payment struct {
	ID               string
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Status           PaymentStatus
	Amount           int64
	Payload          []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DomainEvent struct {
	ID          string
	Topic       string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}
