package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, user_id, status, total_amount, currency, cart_hash, gateway_order_id, created_at, updated_at`

const createOrder = `
INSERT INTO orders (id, user_id, status, total_amount, currency, cart_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ID          string
	UserID      string
	Status      OrderStatus
	TotalAmount int64
	Currency    string
	CartHash    string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.ID, arg.UserID, arg.Status, arg.TotalAmount, arg.Currency, arg.CartHash)
	return scanOrder(row)
}

const setOrderGateway = `
UPDATE orders
SET gateway_order_id = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) SetOrderGateway(ctx context.Context, id, gatewayOrderID string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderGateway, id, gatewayOrderID))
}

const createOrderItem = `
INSERT INTO order_items (id, order_id, product_id, name, unit_price, qty, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateOrderItemParams struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	UnitPrice int64
	Qty       int32
	Subtotal  int64
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem, arg.ID, arg.OrderID, arg.ProductID, arg.Name, arg.UnitPrice, arg.Qty, arg.Subtotal)
	return err
}

const getOrderByID = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrderByID(ctx context.Context, id string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const getOrderByIDForUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND user_id = $2
`

func (q *Queries) GetOrderByIDForUser(ctx context.Context, id, userID string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByIDForUser, id, userID))
}

const getPendingOrderByCartHash = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND cart_hash = $2 AND status = 'pending' AND gateway_order_id <> ''
ORDER BY created_at DESC
LIMIT 1
`

// GetPendingOrderByCartHash finds a live pending order for the same cart
// fingerprint so a repeated checkout reuses it instead of creating a second
// order.
func (q *Queries) GetPendingOrderByCartHash(ctx context.Context, userID, cartHash string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getPendingOrderByCartHash, userID, cartHash))
}

const listOrdersForUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListOrdersForUser(ctx context.Context, userID string, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersForUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const countOrdersForUser = `
SELECT count(*) FROM orders WHERE user_id = $1
`

func (q *Queries) CountOrdersForUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, countOrdersForUser, userID).Scan(&total)
	return total, err
}

const listAllOrders = `
SELECT ` + orderColumns + `
FROM orders
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

func (q *Queries) ListAllOrders(ctx context.Context, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listAllOrders, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const countOrders = `
SELECT count(*) FROM orders
`

func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, countOrders).Scan(&total)
	return total, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, name, unit_price, qty, subtotal
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPrice, &it.Qty, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatusIfPending = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + orderColumns

// UpdateOrderStatusIfPending performs the guarded pending -> paid|failed
// transition. pgx.ErrNoRows means the order already left pending, which
// callers treat as an idempotent no-op, never as a second transition.
func (q *Queries) UpdateOrderStatusIfPending(ctx context.Context, id string, status OrderStatus) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatusIfPending, id, status))
}

const markOrderDelivered = `
UPDATE orders
SET status = 'delivered', updated_at = now()
WHERE id = $1 AND status = 'paid'
RETURNING ` + orderColumns

// MarkOrderDelivered is the only edge out of paid; pgx.ErrNoRows signals the
// order was not in the paid state.
func (q *Queries) MarkOrderDelivered(ctx context.Context, id string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderDelivered, id))
}

const listStalePendingOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE status = 'pending' AND created_at < $1
ORDER BY created_at
LIMIT $2
`

func (q *Queries) ListStalePendingOrders(ctx context.Context, cutoff time.Time, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listStalePendingOrders, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.Currency, &o.CartHash, &o.GatewayOrderID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
