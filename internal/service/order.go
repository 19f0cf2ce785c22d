package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pawonika-pos/api/internal/database"
	"github.com/pawonika-pos/api/internal/invoice"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems    = errors.New("items required")
	ErrItemName      = errors.New("name is required")
	ErrNegativePrice = errors.New("price must be >= 0")
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvoiceConflict means a freshly allocated invoice number hit
	// the unique constraint. With the counter increment serialized in
	// the database this cannot happen; seeing it means the allocator is
	// broken, so it is surfaced instead of retried.
	ErrInvoiceConflict = errors.New("invoice number collision")
)

// TxBeginner starts a new database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	NextInvoiceCounter(ctx context.Context) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	SumOrderItemSubtotals(ctx context.Context, orderID int64) (int64, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, id int64) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CheckoutRequest is the validated input for creating an order.
// Discount and tax arrive as arbitrary JSON numbers and are not
// rejected when negative; they pass through the arithmetic as given.
type CheckoutRequest struct {
	Items         []CheckoutItem
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	PaymentMethod string
	PaidAmount    decimal.Decimal
	CustomerName  string
	Note          string
}

// CheckoutItem is a single submitted line item. ProductID is an
// optional weak reference and is never checked against the catalog.
// Qty is deliberately accepted as-is, including non-positive values.
type CheckoutItem struct {
	ProductID *int64
	Name      string
	Price     int64
	Qty       int64
}

// UpdatePatch carries the editable order fields. Nil means "keep the
// stored value". Subtotal is never patchable: it is always recomputed
// from the order's persisted items.
type UpdatePatch struct {
	CustomerName  *string
	Discount      *decimal.Decimal
	Tax           *decimal.Decimal
	PaymentMethod *string
	PaidAmount    *decimal.Decimal
	Note          *string
}

// OrderResult is an order with its persisted items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// NewOrderServiceWithClock creates an OrderService with an injected
// clock, used by tests to pin invoice dates and created_at.
func NewOrderServiceWithClock(pool TxBeginner, newStore NewOrderStore, now func() time.Time) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: now}
}

// Checkout validates the request, allocates an invoice number, and
// persists the order with its items in one transaction. Validation
// failures happen before the transaction opens, so a rejected request
// never consumes an invoice number.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Name == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrItemName)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrNegativePrice)
		}
	}

	result, err := s.checkoutTx(ctx, req)
	if err != nil {
		if isInvoiceConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvoiceConflict, err)
		}
		return nil, err
	}
	return result, nil
}

// isInvoiceConflict checks if the error is a unique constraint
// violation on invoice_no (pgconn error code 23505).
func isInvoiceConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_invoice_no_key"
	}
	return false
}

// checkoutTx executes the full order creation in a single transaction.
// The invoice allocator runs on the transaction-scoped store: the
// counter row lock serializes concurrent checkouts, so two of them can
// never be handed the same number.
func (s *OrderService) checkoutTx(ctx context.Context, req CheckoutRequest) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	inv, err := invoice.NewWithClock(store, s.now).Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate invoice: %w", err)
	}

	var subtotal int64
	for _, item := range req.Items {
		subtotal += item.Price * item.Qty
	}
	total := computeTotal(subtotal, req.Discount, req.Tax)

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "CASH"
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		InvoiceNo:     inv,
		CustomerName:  req.CustomerName,
		CreatedAt:     pgtype.Timestamptz{Time: s.now(), Valid: true},
		Subtotal:      subtotal,
		Discount:      req.Discount.Round(0).IntPart(),
		Tax:           req.Tax.Round(0).IntPart(),
		Total:         total,
		PaymentMethod: paymentMethod,
		PaidAmount:    req.PaidAmount.Round(0).IntPart(),
		Note:          req.Note,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		productID := pgtype.Int8{}
		if item.ProductID != nil {
			productID = pgtype.Int8{Int64: *item.ProductID, Valid: true}
		}
		persisted, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: productID,
			Name:      item.Name,
			Price:     item.Price,
			Qty:       item.Qty,
			Subtotal:  item.Price * item.Qty,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item %d: %w", i, err)
		}
		items = append(items, persisted)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// Update applies a partial edit to an existing order. The subtotal is
// recomputed from the stored item rows, never taken from the client,
// and item rows themselves are untouched.
func (s *OrderService) Update(ctx context.Context, id int64, patch UpdatePatch) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	existing, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	subtotal, err := store.SumOrderItemSubtotals(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sum order items: %w", err)
	}

	discount := decimal.NewFromInt(existing.Discount)
	if patch.Discount != nil {
		discount = *patch.Discount
	}
	tax := decimal.NewFromInt(existing.Tax)
	if patch.Tax != nil {
		tax = *patch.Tax
	}
	paidAmount := decimal.NewFromInt(existing.PaidAmount)
	if patch.PaidAmount != nil {
		paidAmount = *patch.PaidAmount
	}
	customerName := existing.CustomerName
	if patch.CustomerName != nil {
		customerName = *patch.CustomerName
	}
	paymentMethod := existing.PaymentMethod
	if patch.PaymentMethod != nil {
		paymentMethod = *patch.PaymentMethod
	}
	note := existing.Note
	if patch.Note != nil {
		note = *patch.Note
	}

	updated, err := store.UpdateOrder(ctx, database.UpdateOrderParams{
		ID:            id,
		CustomerName:  customerName,
		Subtotal:      subtotal,
		Discount:      discount.Round(0).IntPart(),
		Tax:           tax.Round(0).IntPart(),
		Total:         computeTotal(subtotal, discount, tax),
		PaymentMethod: paymentMethod,
		PaidAmount:    paidAmount.Round(0).IntPart(),
		Note:          note,
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: updated, Items: items}, nil
}

// Delete removes an order and all of its items in one transaction.
// Returns ErrOrderNotFound when the id does not exist.
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := store.DeleteOrderItemsByOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	deleted, err := store.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if deleted == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// computeTotal applies the order total invariant:
// total = max(0, round(subtotal - discount + tax)).
// Discount and tax may be fractional or negative; rounding happens on
// the combined value, the way the till totals a receipt.
func computeTotal(subtotal int64, discount, tax decimal.Decimal) int64 {
	total := decimal.NewFromInt(subtotal).Sub(discount).Add(tax).Round(0)
	if total.IsNegative() {
		return 0
	}
	return total.IntPart()
}
