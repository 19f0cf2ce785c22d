//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pawonika-pos/api/internal/database"
	"github.com/pawonika-pos/api/internal/router"
	"github.com/pawonika-pos/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database: product catalog, checkout with invoice
// allocation, order reads, update, delete, settings, and backup export.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)
	if err := queries.EnsureDefaultSettings(ctx); err != nil {
		t.Fatalf("seed default settings: %v", err)
	}

	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit — Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	server := httptest.NewServer(router.New(queries, pool, hub))
	defer server.Close()

	today := time.Now().Format("20060102")

	// --- 1. Create a product through the API ---
	productResp := httpJSON(t, server, "POST", "/api/products", map[string]interface{}{
		"name":     "Nasi Goreng",
		"price":    15000,
		"unit":     "porsi",
		"category": "Makanan",
	}, http.StatusCreated)
	productID := int64(productResp["id"].(float64))

	// --- 2. A checkout with no items is rejected and must not consume
	// an invoice number ---
	errResp := httpJSON(t, server, "POST", "/api/orders", map[string]interface{}{
		"items": []interface{}{},
	}, http.StatusBadRequest)
	if errResp["error"] != "items required" {
		t.Fatalf("empty checkout error = %v, want items required", errResp["error"])
	}

	// --- 3. First successful checkout ---
	order1 := checkout(t, server, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": productID, "name": "Nasi Goreng", "price": 15000, "qty": 1},
			{"name": "Es Teh", "price": 5000, "qty": 2},
		},
		"discount":       1000,
		"payment_method": "CASH",
		"paid_amount":    25000,
		"customer_name":  "Budi",
	})
	wantInvoice := fmt.Sprintf("INV-%s-0001", today)
	if order1.invoiceNo != wantInvoice {
		t.Fatalf("first invoice = %s, want %s (rejected checkout must not advance the counter)", order1.invoiceNo, wantInvoice)
	}
	if order1.subtotal != 25000 || order1.total != 24000 {
		t.Fatalf("order totals = %d/%d, want 25000/24000", order1.subtotal, order1.total)
	}
	if order1.itemCount != 2 {
		t.Fatalf("order has %d items, want 2", order1.itemCount)
	}

	// --- 4. Second checkout gets the next number ---
	order2 := checkout(t, server, map[string]interface{}{
		"items": []map[string]interface{}{{"name": "Es Teh", "price": 5000, "qty": 1}},
	})
	if want := fmt.Sprintf("INV-%s-0002", today); order2.invoiceNo != want {
		t.Fatalf("second invoice = %s, want %s", order2.invoiceNo, want)
	}

	// --- 5. Read endpoints ---
	detail := httpJSON(t, server, "GET", fmt.Sprintf("/api/orders/%d", order1.id), nil, http.StatusOK)
	if items := detail["items"].([]interface{}); len(items) != 2 {
		t.Fatalf("order detail has %d items, want 2", len(items))
	}
	var orders []map[string]interface{}
	httpJSONList(t, server, "/api/orders", &orders)
	if len(orders) != 2 {
		t.Fatalf("order list has %d orders, want 2", len(orders))
	}

	// --- 6. Update recomputes the total from stored items ---
	updated := httpJSON(t, server, "PUT", fmt.Sprintf("/api/orders/%d", order1.id), map[string]interface{}{
		"discount": 0,
		"note":     "no discount after all",
	}, http.StatusOK)
	updOrder := updated["order"].(map[string]interface{})
	if int64(updOrder["total"].(float64)) != 25000 {
		t.Fatalf("updated total = %v, want 25000", updOrder["total"])
	}
	if updOrder["customer_name"] != "Budi" {
		t.Fatalf("customer_name = %v, want Budi (unpatched field must survive)", updOrder["customer_name"])
	}

	// --- 7. Changing the prefix through settings affects the next
	// invoice, counter untouched ---
	httpJSON(t, server, "POST", "/api/settings", map[string]string{"invoice_prefix": "PWI"}, http.StatusOK)
	order3 := checkout(t, server, map[string]interface{}{
		"items": []map[string]interface{}{{"name": "Kopi", "price": 8000, "qty": 1}},
	})
	if want := fmt.Sprintf("PWI-%s-0003", today); order3.invoiceNo != want {
		t.Fatalf("third invoice = %s, want %s", order3.invoiceNo, want)
	}

	// --- 8. Backup export sees everything ---
	export := httpJSON(t, server, "GET", "/api/backup/export", nil, http.StatusOK)
	if n := len(export["orders"].([]interface{})); n != 3 {
		t.Fatalf("export has %d orders, want 3", n)
	}
	if n := len(export["order_items"].([]interface{})); n != 4 {
		t.Fatalf("export has %d order items, want 4", n)
	}
	if export["export_id"].(string) == "" {
		t.Fatal("export_id missing")
	}

	// --- 9. Delete removes the order and its items ---
	httpJSON(t, server, "DELETE", fmt.Sprintf("/api/orders/%d", order1.id), nil, http.StatusOK)
	httpJSON(t, server, "GET", fmt.Sprintf("/api/orders/%d", order1.id), nil, http.StatusNotFound)
	httpJSON(t, server, "DELETE", fmt.Sprintf("/api/orders/%d", order1.id), nil, http.StatusNotFound)

	var orphans int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(1) FROM order_items WHERE order_id = $1`, order1.id).Scan(&orphans); err != nil {
		t.Fatalf("count orphan items: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("%d item rows survived the order delete", orphans)
	}
}

// TestIntegrationConcurrentCheckouts runs parallel checkouts against a
// real database and asserts every order gets a distinct invoice number.
func TestIntegrationConcurrentCheckouts(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)
	if err := queries.EnsureDefaultSettings(ctx); err != nil {
		t.Fatalf("seed default settings: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	server := httptest.NewServer(router.New(queries, pool, hub))
	defer server.Close()

	const n = 20
	invoices := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]interface{}{
				"items": []map[string]interface{}{
					{"name": fmt.Sprintf("Item %d", i), "price": 1000, "qty": 1},
				},
			})
			resp, err := http.Post(server.URL+"/api/orders", "application/json", bytes.NewReader(body))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			var result struct {
				Order struct {
					InvoiceNo string `json:"invoice_no"`
				} `json:"order"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				errs <- err
				return
			}
			if resp.StatusCode != http.StatusCreated {
				errs <- fmt.Errorf("checkout %d: status %d", i, resp.StatusCode)
				return
			}
			invoices <- result.Order.InvoiceNo
		}(i)
	}
	wg.Wait()
	close(invoices)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent checkout: %v", err)
	}

	seen := make(map[string]bool, n)
	for inv := range invoices {
		if seen[inv] {
			t.Fatalf("invoice %s was allocated twice", inv)
		}
		seen[inv] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct invoices, want %d", len(seen), n)
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pawonika_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

// --- HTTP helpers ---

type checkoutResult struct {
	id        int64
	invoiceNo string
	subtotal  int64
	total     int64
	itemCount int
}

func checkout(t *testing.T, server *httptest.Server, body map[string]interface{}) checkoutResult {
	t.Helper()
	resp := httpJSON(t, server, "POST", "/api/orders", body, http.StatusCreated)
	order, ok := resp["order"].(map[string]interface{})
	if !ok {
		t.Fatalf("checkout response missing order: %v", resp)
	}
	items, _ := resp["items"].([]interface{})
	return checkoutResult{
		id:        int64(order["id"].(float64)),
		invoiceNo: order["invoice_no"].(string),
		subtotal:  int64(order["subtotal"].(float64)),
		total:     int64(order["total"].(float64)),
		itemCount: len(items),
	}
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d; body: %v", method, path, resp.StatusCode, wantStatus, result)
	}
	return result
}

func httpJSONList(t *testing.T, server *httptest.Server, path string, dst interface{}) {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("GET %s: decode response: %v", path, err)
	}
}
