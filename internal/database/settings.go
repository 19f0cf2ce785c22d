package database

import "context"

// Well-known settings keys.
const (
	SettingInvoicePrefix  = "invoice_prefix"
	SettingInvoiceCounter = "invoice_counter"
)

const getSetting = `
SELECT value FROM settings WHERE key = $1
`

// GetSetting returns pgx.ErrNoRows when the key is absent.
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRow(ctx, getSetting, key).Scan(&value)
	return value, err
}

const setSetting = `
INSERT INTO settings (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
`

// SetSetting upserts a single key. The write is durable once Exec returns.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.Exec(ctx, setSetting, key, value)
	return err
}

const listSettingRows = `
SELECT key, value FROM settings ORDER BY key
`

func (q *Queries) ListSettingRows(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.Query(ctx, listSettingRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// ListSettings returns the whole namespace as a flat map.
func (q *Queries) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := q.ListSettingRows(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(rows))
	for _, s := range rows {
		m[s.Key] = s.Value
	}
	return m, nil
}

const nextInvoiceCounter = `
INSERT INTO settings (key, value)
VALUES ($1, '2')
ON CONFLICT (key) DO UPDATE SET value = ((settings.value)::bigint + 1)::text
RETURNING (value::bigint - 1)
`

// NextInvoiceCounter atomically increments the invoice counter and
// returns its value from before the increment (1 when the key was
// absent). The single-statement upsert takes a row lock on the counter
// key, so concurrent callers serialize here and can never observe the
// same value.
func (q *Queries) NextInvoiceCounter(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, nextInvoiceCounter, SettingInvoiceCounter).Scan(&n)
	return n, err
}

const countSettings = `
SELECT COUNT(1) FROM settings
`

// EnsureDefaultSettings seeds the settings table on first boot. It only
// writes when the table is completely empty, so operator edits survive
// restarts.
func (q *Queries) EnsureDefaultSettings(ctx context.Context) error {
	var c int64
	if err := q.db.QueryRow(ctx, countSettings).Scan(&c); err != nil {
		return err
	}
	if c > 0 {
		return nil
	}
	defaults := []Setting{
		{Key: "store_name", Value: "Pawon Ika"},
		{Key: "store_address", Value: ""},
		{Key: "store_phone", Value: ""},
		{Key: SettingInvoicePrefix, Value: "INV"},
		{Key: SettingInvoiceCounter, Value: "1"},
		{Key: "paper_width", Value: "58"},
	}
	for _, s := range defaults {
		if err := q.SetSetting(ctx, s.Key, s.Value); err != nil {
			return err
		}
	}
	return nil
}
