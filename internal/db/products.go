package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const createProduct = `
INSERT INTO products (id, name, description, price, stock, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, description, price, stock, created_by, created_at, updated_at
`

type CreateProductParams struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Stock       int32
	CreatedBy   string
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.ID, arg.Name, arg.Description, arg.Price, arg.Stock, arg.CreatedBy)
	return scanProduct(row)
}

const listProducts = `
SELECT id, name, description, price, stock, created_by, created_at, updated_at
FROM products
ORDER BY created_at, id
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getProductByID = `
SELECT id, name, description, price, stock, created_by, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProductByID(ctx context.Context, id string) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductByID, id))
}

const updateProductStock = `
UPDATE products
SET stock = $2, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, stock, created_by, created_at, updated_at
`

func (q *Queries) UpdateProductStock(ctx context.Context, id string, stock int32) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProductStock, id, stock))
}

const decrementProductStock = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
`

// DecrementProductStock atomically reserves stock. pgx.ErrNoRows is returned
// when the product is missing or has insufficient stock.
func (q *Queries) DecrementProductStock(ctx context.Context, id string, qty int32) error {
	tag, err := q.db.Exec(ctx, decrementProductStock, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
