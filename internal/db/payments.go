package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, order_id, gateway_order_id, gateway_payment_id, status, amount, payload, created_at, updated_at`

const createPayment = `
INSERT INTO payments (id, order_id, gateway_order_id, gateway_payment_id, status, amount, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	ID               string
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Status           PaymentStatus
	Amount           int64
	Payload          []byte
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.ID, arg.OrderID, arg.GatewayOrderID, arg.GatewayPaymentID, arg.Status, arg.Amount, arg.Payload)
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Status, &p.Amount, &p.Payload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
