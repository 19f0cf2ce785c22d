package database

import "context"

const listProducts = `
SELECT id, name, price, unit, category
FROM products
ORDER BY name ASC
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const getProduct = `
SELECT id, name, price, unit, category
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category)
	return p, err
}

const createProduct = `
INSERT INTO products (name, price, unit, category)
VALUES ($1, $2, $3, $4)
RETURNING id, name, price, unit, category
`

// CreateProductParams holds the column values for a new product row.
type CreateProductParams struct {
	Name     string
	Price    int64
	Unit     string
	Category string
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Name, arg.Price, arg.Unit, arg.Category)
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category)
	return p, err
}

const updateProduct = `
UPDATE products
SET name = $2, price = $3, unit = $4, category = $5
WHERE id = $1
RETURNING id, name, price, unit, category
`

// UpdateProductParams holds the full replacement row for a product edit.
type UpdateProductParams struct {
	ID       int64
	Name     string
	Price    int64
	Unit     string
	Category string
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Name, arg.Price, arg.Unit, arg.Category)
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category)
	return p, err
}

const deleteProduct = `
DELETE FROM products WHERE id = $1
`

// DeleteProduct removes a catalog row. Order items keep their copied
// name and price, so history is unaffected.
func (q *Queries) DeleteProduct(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteProduct, id)
	return err
}
