package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (invoice_no, customer_name, created_at, subtotal, discount, tax, total, payment_method, paid_amount, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, invoice_no, customer_name, created_at, subtotal, discount, tax, total, payment_method, paid_amount, note
`

// CreateOrderParams holds the column values for a new order row.
type CreateOrderParams struct {
	InvoiceNo     string
	CustomerName  string
	CreatedAt     pgtype.Timestamptz
	Subtotal      int64
	Discount      int64
	Tax           int64
	Total         int64
	PaymentMethod string
	PaidAmount    int64
	Note          string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.InvoiceNo,
		arg.CustomerName,
		arg.CreatedAt,
		arg.Subtotal,
		arg.Discount,
		arg.Tax,
		arg.Total,
		arg.PaymentMethod,
		arg.PaidAmount,
		arg.Note,
	)
	var o Order
	err := row.Scan(
		&o.ID,
		&o.InvoiceNo,
		&o.CustomerName,
		&o.CreatedAt,
		&o.Subtotal,
		&o.Discount,
		&o.Tax,
		&o.Total,
		&o.PaymentMethod,
		&o.PaidAmount,
		&o.Note,
	)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, name, price, qty, subtotal)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, name, price, qty, subtotal
`

// CreateOrderItemParams holds the column values for a new item row.
type CreateOrderItemParams struct {
	OrderID   int64
	ProductID pgtype.Int8
	Name      string
	Price     int64
	Qty       int64
	Subtotal  int64
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Name,
		arg.Price,
		arg.Qty,
		arg.Subtotal,
	)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Qty, &it.Subtotal)
	return it, err
}

const getOrder = `
SELECT id, invoice_no, customer_name, created_at, subtotal, discount, tax, total, payment_method, paid_amount, note
FROM orders
WHERE id = $1
`

// GetOrder returns pgx.ErrNoRows when the id does not exist.
func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var o Order
	err := row.Scan(
		&o.ID,
		&o.InvoiceNo,
		&o.CustomerName,
		&o.CreatedAt,
		&o.Subtotal,
		&o.Discount,
		&o.Tax,
		&o.Total,
		&o.PaymentMethod,
		&o.PaidAmount,
		&o.Note,
	)
	return o, err
}

const listOrders = `
SELECT id, invoice_no, customer_name, created_at, subtotal, discount, tax, total, payment_method, paid_amount, note
FROM orders
ORDER BY created_at DESC, id DESC
`

// ListOrders returns all orders, most recent first. Ties on created_at
// fall back to insertion order.
func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.InvoiceNo,
			&o.CustomerName,
			&o.CreatedAt,
			&o.Subtotal,
			&o.Discount,
			&o.Tax,
			&o.Total,
			&o.PaymentMethod,
			&o.PaidAmount,
			&o.Note,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, name, price, qty, subtotal
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Qty, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listAllOrderItems = `
SELECT id, order_id, product_id, name, price, qty, subtotal
FROM order_items
ORDER BY id
`

// ListAllOrderItems returns every item row, used by the backup export.
func (q *Queries) ListAllOrderItems(ctx context.Context) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listAllOrderItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Qty, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const sumOrderItemSubtotals = `
SELECT COALESCE(SUM(subtotal), 0)::bigint
FROM order_items
WHERE order_id = $1
`

// SumOrderItemSubtotals is the server-side source of truth for an
// order's subtotal on edits. Item rows are immutable after creation.
func (q *Queries) SumOrderItemSubtotals(ctx context.Context, orderID int64) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, sumOrderItemSubtotals, orderID).Scan(&sum)
	return sum, err
}

const updateOrder = `
UPDATE orders
SET customer_name = $2, subtotal = $3, discount = $4, tax = $5, total = $6, payment_method = $7, paid_amount = $8, note = $9
WHERE id = $1
RETURNING id, invoice_no, customer_name, created_at, subtotal, discount, tax, total, payment_method, paid_amount, note
`

// UpdateOrderParams holds the full replacement row for an order edit.
// invoice_no and created_at are immutable and never part of an update.
type UpdateOrderParams struct {
	ID            int64
	CustomerName  string
	Subtotal      int64
	Discount      int64
	Tax           int64
	Total         int64
	PaymentMethod string
	PaidAmount    int64
	Note          string
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.CustomerName,
		arg.Subtotal,
		arg.Discount,
		arg.Tax,
		arg.Total,
		arg.PaymentMethod,
		arg.PaidAmount,
		arg.Note,
	)
	var o Order
	err := row.Scan(
		&o.ID,
		&o.InvoiceNo,
		&o.CustomerName,
		&o.CreatedAt,
		&o.Subtotal,
		&o.Discount,
		&o.Tax,
		&o.Total,
		&o.PaymentMethod,
		&o.PaidAmount,
		&o.Note,
	)
	return o, err
}

const deleteOrderItemsByOrder = `
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID int64) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}

const deleteOrder = `
DELETE FROM orders WHERE id = $1
`

// DeleteOrder reports how many rows were removed so callers can map a
// missing id to a not-found result.
func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
