// Package orders archives dispatched webshop orders and tracks their
// fulfillment status. The archive records what left via the buyer's mail
// client; it is not the transport.
package orders

import (
	"errors"
	"time"
)

// Status is the fulfillment lifecycle position of an archived order.
type Status string

const (
	StatusPending  Status = "pending"
	StatusConfirm  Status = "confirmed"
	StatusReady    Status = "ready for pickup"
	StatusPickedUp Status = "picked up"
)

// nextStatus defines the forward-only lifecycle.
var nextStatus = map[Status]Status{
	StatusPending: StatusConfirm,
	StatusConfirm: StatusReady,
	StatusReady:   StatusPickedUp,
}

var (
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrFinalStatus rejects advancing an order past picked up.
	ErrFinalStatus = errors.New("orders: order already picked up")
	// ErrNoItems rejects archiving an order without line items.
	ErrNoItems = errors.New("orders: order has no items")
)

// Item is one archived order line.
type Item struct {
	ProductID string  `db:"product_id" json:"productId"`
	Name      string  `db:"name" json:"name"`
	Quantity  float64 `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unitPrice"`
	LineTotal float64 `db:"line_total" json:"lineTotal"`
}

// Order is a dispatched webshop order as archived.
type Order struct {
	ID            string    `db:"id" json:"id"`
	CustomerName  string    `db:"customer_name" json:"customerName"`
	CustomerPhone string    `db:"customer_phone" json:"customerPhone,omitempty"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	BatchID       string    `db:"batch_id" json:"batchId"`
	BatchName     string    `db:"batch_name" json:"batchName"`
	Total         float64   `db:"total" json:"total"`
	Status        Status    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`

	Items []Item `db:"-" json:"items"`
}

// Advance returns the status following s in the lifecycle.
func Advance(s Status) (Status, error) {
	next, ok := nextStatus[s]
	if !ok {
		return s, ErrFinalStatus
	}
	return next, nil
}
