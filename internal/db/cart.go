package db

import "context"

const findCartItem = `
SELECT id, user_id, product_id, qty, created_at
FROM cart_items
WHERE user_id = $1 AND product_id = $2
`

func (q *Queries) FindCartItem(ctx context.Context, userID, productID string) (CartItem, error) {
	row := q.db.QueryRow(ctx, findCartItem, userID, productID)
	var it CartItem
	err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Qty, &it.CreatedAt)
	return it, err
}

const insertCartItem = `
INSERT INTO cart_items (id, user_id, product_id, qty)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, product_id, qty, created_at
`

type InsertCartItemParams struct {
	ID        string
	UserID    string
	ProductID string
	Qty       int32
}

func (q *Queries) InsertCartItem(ctx context.Context, arg InsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, insertCartItem, arg.ID, arg.UserID, arg.ProductID, arg.Qty)
	var it CartItem
	err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Qty, &it.CreatedAt)
	return it, err
}

const updateCartItemQty = `
UPDATE cart_items
SET qty = $2
WHERE id = $1
`

func (q *Queries) UpdateCartItemQty(ctx context.Context, id string, qty int32) error {
	_, err := q.db.Exec(ctx, updateCartItemQty, id, qty)
	return err
}

const deleteCartItem = `
DELETE FROM cart_items
WHERE user_id = $1 AND product_id = $2
`

func (q *Queries) DeleteCartItem(ctx context.Context, userID, productID string) error {
	_, err := q.db.Exec(ctx, deleteCartItem, userID, productID)
	return err
}

const clearCart = `
DELETE FROM cart_items
WHERE user_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, clearCart, userID)
	return err
}

const listCartLines = `
SELECT p.id, p.name, p.price, ci.qty, p.stock, ci.created_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.user_id = $1
ORDER BY ci.created_at, ci.id
`

// ListCartLines returns the cart joined against the catalogue in insertion
// order. Prices are read from the products table so the cart is always
// server-authoritative.
func (q *Queries) ListCartLines(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := q.db.Query(ctx, listCartLines, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.UnitPrice, &l.Qty, &l.Stock, &l.AddedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
