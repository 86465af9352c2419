package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id             TEXT PRIMARY KEY,
	customer_name  TEXT NOT NULL,
	customer_phone TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	batch_id       TEXT NOT NULL,
	batch_name     TEXT NOT NULL,
	total          REAL NOT NULL,
	status         TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	order_id   TEXT NOT NULL REFERENCES orders(id),
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	quantity   REAL NOT NULL,
	unit_price REAL NOT NULL,
	line_total REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`

// Repository persists orders in SQLite.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRepository initializes the schema and returns a repository. now defaults
// to time.Now.
func NewRepository(db *sqlx.DB, now func() time.Time) (*Repository, error) {
	if now == nil {
		now = time.Now
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("orders: init schema: %w", err)
	}
	return &Repository{db: db, now: now}, nil
}

// Open connects to the SQLite archive at path and initializes the schema.
func Open(path string) (*Repository, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("orders: open %s: %w", path, err)
	}
	// SQLite supports one writer; keep the pool at a single connection to
	// avoid SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	return NewRepository(db, nil)
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Archive stores a dispatched order with its items and returns the assigned
// id. New orders start in the pending state.
func (r *Repository) Archive(ctx context.Context, order Order) (string, error) {
	if len(order.Items) == 0 {
		return "", ErrNoItems
	}

	now := r.now().UTC()
	order.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	order.Status = StatusPending
	order.CreatedAt = now
	order.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("orders: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, customer_name, customer_phone, notes, batch_id, batch_name, total, status, created_at, updated_at)
		VALUES (:id, :customer_name, :customer_phone, :notes, :batch_id, :batch_name, :total, :status, :created_at, :updated_at)`,
		order); err != nil {
		return "", fmt.Errorf("orders: insert order: %w", err)
	}
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return "", fmt.Errorf("orders: insert item %s: %w", item.ProductID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("orders: commit: %w", err)
	}
	return order.ID, nil
}

// Get returns one archived order with its items.
func (r *Repository) Get(ctx context.Context, id string) (Order, error) {
	var order Order
	if err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return Order{}, fmt.Errorf("orders: get %s: %w", id, err)
	}
	if err := r.db.SelectContext(ctx, &order.Items, `
		SELECT product_id, name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = ? ORDER BY rowid`, id); err != nil {
		return Order{}, fmt.Errorf("orders: items %s: %w", id, err)
	}
	return order, nil
}

// List returns archived orders newest first, without items.
func (r *Repository) List(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM orders ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	return out, nil
}

// AdvanceStatus moves an order one step along the lifecycle and returns the
// new status.
func (r *Repository) AdvanceStatus(ctx context.Context, id string) (Status, error) {
	var current Status
	if err := r.db.GetContext(ctx, &current, `SELECT status FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return "", fmt.Errorf("orders: status %s: %w", id, err)
	}
	next, err := Advance(current)
	if err != nil {
		return current, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		next, r.now().UTC(), id); err != nil {
		return current, fmt.Errorf("orders: update %s: %w", id, err)
	}
	return next, nil
}
