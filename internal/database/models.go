package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Product is a catalog entry. Orders copy name and price by value at
// checkout time, so later product edits never rewrite history.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// Order is a persisted sale. All money fields are integers in the
// smallest currency unit.
type Order struct {
	ID            int64     `json:"id"`
	InvoiceNo     string    `json:"invoice_no"`
	CustomerName  string    `json:"customer_name"`
	CreatedAt     time.Time `json:"created_at"`
	Subtotal      int64     `json:"subtotal"`
	Discount      int64     `json:"discount"`
	Tax           int64     `json:"tax"`
	Total         int64     `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	PaidAmount    int64     `json:"paid_amount"`
	Note          string    `json:"note"`
}

// OrderItem is one line of an order. ProductID is a weak reference:
// the product may have been deleted since, or never existed.
type OrderItem struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	ProductID pgtype.Int8 `json:"product_id"`
	Name      string      `json:"name"`
	Price     int64       `json:"price"`
	Qty       int64       `json:"qty"`
	Subtotal  int64       `json:"subtotal"`
}

// Setting is one key/value pair of the flat settings namespace.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
