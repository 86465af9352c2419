// Package shop implements the webshop cart and order session: a page-lifetime
// state machine between the read-only catalog and an outbound order.
package shop

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/money"
)

// LineItem is one cart entry. Product is a snapshot of the catalog entry at
// the time the line was added.
type LineItem struct {
	Product  catalog.Product
	Quantity float64
}

// Subtotal is effectivePrice × quantity for this line.
func (l LineItem) Subtotal() float64 {
	return l.Product.EffectivePrice() * l.Quantity
}

// Contact identifies the shop side of outbound order messages.
type Contact struct {
	Email string
	Phone string
}

// BatchConflictError rejects a quantity increase on a product outside the
// batch the order is locked to. The ids identify the batches for clients;
// the names are what the buyer sees.
type BatchConflictError struct {
	SelectedBatch      string
	SelectedBatchName  string
	AttemptedBatch     string
	AttemptedBatchName string
}

func (e *BatchConflictError) Error() string {
	return fmt.Sprintf("shop: cart locked to batch %q, cannot add from %q", e.SelectedBatch, e.AttemptedBatch)
}

// UserMessage is the explanation shown to the buyer.
func (e *BatchConflictError) UserMessage() string {
	name := e.SelectedBatchName
	if name == "" {
		name = e.SelectedBatch
	}
	return fmt.Sprintf("Je kunt alleen producten uit één batch bestellen.\n\n"+
		"Je hebt al producten uit %q geselecteerd.\n\n"+
		"Wil je vlees uit meerdere batches? Plaats dan afzonderlijke bestellingen.", name)
}

// ErrEmptyCart rejects actions that need at least one line item.
var ErrEmptyCart = errors.New("shop: cart is empty")

// Session owns one visitor's cart and checkout progress. It is created empty,
// mutated only through quantity-set operations and checkout transitions, and
// discarded with the browser session; there is no persistence.
type Session struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	tracker *analytics.Tracker
	contact Contact

	lines map[string]*LineItem
	order []string // insertion order, drives summary display
	batch string   // batch lock; empty when cart is empty

	state State
	form  Form
}

// NewSession builds an empty session against the given catalog.
func NewSession(cat *catalog.Catalog, tracker *analytics.Tracker, contact Contact) *Session {
	return &Session{
		catalog: cat,
		tracker: tracker,
		contact: contact,
		lines:   make(map[string]*LineItem),
		state:   StateIdle,
	}
}

// Change describes the observable effects of a quantity mutation so the UI
// can mirror the cart state.
type Change struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	// Added / Removed flag the 0→positive and positive→0 transitions only.
	Added   bool `json:"added,omitempty"`
	Removed bool `json:"removed,omitempty"`
	// LockedBatch is set when this change locked the session to a batch;
	// DisabledProducts lists the other-batch entries to disable.
	LockedBatch      string   `json:"lockedBatch,omitempty"`
	DisabledProducts []string `json:"disabledProducts,omitempty"`
	// Unlocked is set when the cart emptied and all entries re-enable.
	Unlocked bool `json:"unlocked,omitempty"`
	// CheckoutClosed is set when a removal emptied the cart while the
	// checkout panel was open.
	CheckoutClosed bool `json:"checkoutClosed,omitempty"`
}

// SetQuantity normalizes raw input and upserts or removes the line item,
// enforcing the one-batch-per-order rule. On a cross-batch rejection the
// product's quantity is forced back to zero and the cart is left untouched.
func (s *Session) SetQuantity(ctx context.Context, productID, raw string) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setQuantity(ctx, productID, money.ParseQuantity(raw))
}

func (s *Session) setQuantity(ctx context.Context, productID string, qty float64) (Change, error) {
	change := Change{ProductID: productID, Quantity: qty}

	prev := 0.0
	if line, ok := s.lines[productID]; ok {
		prev = line.Quantity
	}

	if qty <= 0 {
		change.Quantity = 0
		if prev <= 0 {
			return change, nil
		}
		line := s.lines[productID]
		s.tracker.Track(ctx, analytics.RemoveFromCart(lineAnalyticsItem(*line)))
		delete(s.lines, productID)
		s.dropFromOrder(productID)
		change.Removed = true
		if len(s.lines) == 0 {
			s.batch = ""
			change.Unlocked = true
			if s.state == StateReviewing {
				s.state = StateIdle
				change.CheckoutClosed = true
			}
		}
		return change, nil
	}

	product, err := s.catalog.Product(productID)
	if err != nil {
		return change, err
	}

	// Per-piece products take whole counts; fractional input truncates.
	if !product.PerKg() {
		qty = math.Trunc(qty)
		change.Quantity = qty
		if qty <= 0 {
			return s.setQuantity(ctx, productID, 0)
		}
	}

	if s.batch != "" && s.batch != product.BatchID {
		// Reject and force the attempted product back to zero; the cart
		// must not end up holding a different-batch item.
		change.Quantity = 0
		selected := s.lines[s.order[0]].Product
		return change, &BatchConflictError{
			SelectedBatch:      s.batch,
			SelectedBatchName:  selected.BatchName,
			AttemptedBatch:     product.BatchID,
			AttemptedBatchName: product.BatchName,
		}
	}

	if s.batch == "" {
		s.batch = product.BatchID
		change.LockedBatch = product.BatchID
		change.DisabledProducts = s.catalog.OtherBatchProducts(product.BatchID)
	}

	if prev == 0 {
		s.order = append(s.order, productID)
		change.Added = true
		s.tracker.Track(ctx, analytics.AddToCart(analytics.Item{
			ItemID:       product.ID,
			ItemName:     product.Name,
			ItemCategory: product.BatchID,
			Price:        product.EffectivePrice(),
		}))
	}
	s.lines[productID] = &LineItem{Product: product, Quantity: qty}
	return change, nil
}

// Adjust shifts a line's quantity by delta whole units (checkout +/- buttons).
func (s *Session) Adjust(ctx context.Context, productID string, delta float64) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := 0.0
	if line, ok := s.lines[productID]; ok {
		prev = line.Quantity
	}
	next := prev + delta
	if next < 0 {
		next = 0
	}
	return s.setQuantity(ctx, productID, next)
}

func (s *Session) dropFromOrder(productID string) {
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Quantity returns the current quantity for a product, zero when absent.
func (s *Session) Quantity(productID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line, ok := s.lines[productID]; ok {
		return line.Quantity
	}
	return 0
}

// LockedBatch returns the batch id the cart is locked to, empty when unlocked.
func (s *Session) LockedBatch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// LineView is one summary row.
type LineView struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	ExpectedPrice float64 `json:"expectedPrice"`
	LineTotal     float64 `json:"lineTotal"`
	Packaging     string  `json:"packaging,omitempty"`
	DisplayTotal  string  `json:"displayTotal"`
}

// Summary is the order panel derivation: totals plus the shared batch and
// pickup information. Empty carts produce the placeholder state.
type Summary struct {
	Empty         bool                 `json:"empty"`
	Lines         []LineView           `json:"lines,omitempty"`
	TotalQuantity float64              `json:"totalQuantity"`
	TotalPrice    float64              `json:"totalPrice"`
	DisplayTotal  string               `json:"displayTotal,omitempty"`
	BatchID       string               `json:"batchId,omitempty"`
	BatchName     string               `json:"batchName,omitempty"`
	BatchType     catalog.BatchType    `json:"batchType,omitempty"`
	PickupSlots   []catalog.PickupSlot `json:"pickupSlots,omitempty"`
	PickupText    string               `json:"pickupText,omitempty"`
}

// Summarize derives the order summary from the cart. It is a pure read.
func (s *Session) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summarize()
}

func (s *Session) summarize() Summary {
	if len(s.lines) == 0 {
		return Summary{Empty: true}
	}

	sum := Summary{BatchID: s.batch}
	for _, id := range s.order {
		line := s.lines[id]
		total := money.RoundCents(line.Subtotal())
		sum.Lines = append(sum.Lines, LineView{
			ProductID:     id,
			Name:          line.Product.Name,
			Quantity:      line.Quantity,
			UnitPrice:     line.Product.UnitPrice,
			ExpectedPrice: line.Product.ExpectedPrice,
			LineTotal:     total,
			Packaging:     line.Product.PackagingText(),
			DisplayTotal:  money.FormatEUR(total),
		})
		sum.TotalQuantity += line.Quantity
		sum.TotalPrice += line.Subtotal()

		// All lines share one batch; pickup info may come from any of them.
		if sum.BatchName == "" {
			sum.BatchName = line.Product.BatchName
			sum.BatchType = line.Product.BatchType
			sum.PickupSlots = line.Product.Slots
			sum.PickupText = line.Product.PickupText
		}
	}
	sum.TotalPrice = money.RoundCents(sum.TotalPrice)
	sum.DisplayTotal = money.FormatEUR(sum.TotalPrice)
	return sum
}

// TrackCartView emits the view_cart event for the current cart, if any.
func (s *Session) TrackCartView(ctx context.Context) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.summarize()
	if !sum.Empty {
		s.tracker.Track(ctx, analytics.ViewCart(s.analyticsItems(), sum.TotalPrice))
	}
	return sum
}

func (s *Session) analyticsItems() []analytics.Item {
	items := make([]analytics.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, lineAnalyticsItem(*s.lines[id]))
	}
	return items
}

func lineAnalyticsItem(line LineItem) analytics.Item {
	return analytics.Item{
		ItemID:       line.Product.ID,
		ItemName:     line.Product.Name,
		ItemCategory: line.Product.BatchID,
		Price:        line.Product.EffectivePrice(),
		Quantity:     line.Quantity,
	}
}

// formatQty renders a quantity for order text: whole counts as "2x",
// fractional kilograms as "1,5 kg".
func formatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%dx", int64(qty))
	}
	return strings.Replace(strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", qty), "0"), "."), ".", ",", 1) + " kg"
}

// formatCount renders the total quantity for the "(N stuks)" suffix.
func formatCount(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%d", int64(qty))
	}
	return strings.Replace(strings.TrimRight(fmt.Sprintf("%.3f", qty), "0"), ".", ",", 1)
}
