// Package invoice allocates human-readable invoice numbers of the form
// PREFIX-YYYYMMDD-NNNN.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SequenceStore is the durable key/value state behind the allocator.
// Satisfied by *database.Queries, either pool-backed or bound to a
// transaction. NextInvoiceCounter must be an atomic increment-and-fetch:
// two concurrent calls must never return the same value.
type SequenceStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	NextInvoiceCounter(ctx context.Context) (int64, error)
}

// Allocator produces invoice numbers from a SequenceStore and a clock.
type Allocator struct {
	store SequenceStore
	now   func() time.Time
}

// New creates an Allocator using the local wall clock.
func New(store SequenceStore) *Allocator {
	return &Allocator{store: store, now: time.Now}
}

// NewWithClock creates an Allocator with an injected clock.
func NewWithClock(store SequenceStore, now func() time.Time) *Allocator {
	return &Allocator{store: store, now: now}
}

const (
	prefixKey     = "invoice_prefix"
	defaultPrefix = "INV"
)

// Allocate returns the next invoice number, advancing the counter as a
// side effect. The increment shares the store's transaction scope: run
// inside a checkout transaction, the row lock on the counter key
// serializes concurrent allocators, and a rollback releases the number
// with the rest of the order. Numbers are zero-padded to four digits;
// the field simply widens past 9999. Store errors propagate unmodified
// and are never retried.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	prefix, err := a.store.GetSetting(ctx, prefixKey)
	if errors.Is(err, pgx.ErrNoRows) {
		prefix = defaultPrefix
	} else if err != nil {
		return "", fmt.Errorf("read invoice prefix: %w", err)
	}
	if prefix == "" {
		prefix = defaultPrefix
	}

	n, err := a.store.NextInvoiceCounter(ctx)
	if err != nil {
		return "", fmt.Errorf("advance invoice counter: %w", err)
	}

	return fmt.Sprintf("%s-%s-%04d", prefix, a.now().Format("20060102"), n), nil
}
