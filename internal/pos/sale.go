// Package pos implements the point-of-sale screen: a per-session sale with
// receipt rendering and a SEPA payment QR payload. Sales are independent of
// the webshop cart and carry no batch constraint.
package pos

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/money"
)

var (
	// ErrEmptySale blocks receipt and QR generation without items.
	ErrEmptySale = errors.New("pos: sale is empty")
	// ErrWholeQuantity rejects fractional quantities on per-piece products.
	ErrWholeQuantity = errors.New("pos: product is sold per piece, quantity must be whole")
	// ErrInvalidQuantity rejects quantity input that is not a number.
	ErrInvalidQuantity = errors.New("pos: invalid quantity")
)

// Line is one sale entry. Quantity is kilograms for weighed products and a
// piece count otherwise.
type Line struct {
	Product  catalog.Product
	Quantity float64
}

// Subtotal is the weighed or counted line price.
func (l Line) Subtotal() float64 {
	return money.RoundCents(l.Product.UnitPrice * l.Quantity)
}

// Sale accumulates items at the counter. Unlike the webshop cart it prices
// per-kg products by actual weight, not by the expected package price.
type Sale struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	now     func() time.Time

	lines map[string]*Line
	order []string
}

// NewSale builds an empty sale. now defaults to time.Now.
func NewSale(cat *catalog.Catalog, now func() time.Time) *Sale {
	if now == nil {
		now = time.Now
	}
	return &Sale{
		catalog: cat,
		now:     now,
		lines:   make(map[string]*Line),
	}
}

// DefaultQuantity suggests the quantity pre-fill for a product: the typical
// package weight in kilograms when weighed, one piece otherwise.
func DefaultQuantity(p catalog.Product) float64 {
	if p.PerKg() && p.PackagingGrams > 0 {
		return float64(p.PackagingGrams) / 1000
	}
	return 1
}

// SetQuantity upserts a line. Weighed products accept decimal kilograms;
// per-piece products require whole counts. Zero removes the line; input that
// is not a number at all is rejected.
func (s *Sale) SetQuantity(productID, raw string) error {
	qty, err := money.ParseQuantityStrict(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		s.remove(productID)
		return nil
	}

	product, err := s.catalog.Product(productID)
	if err != nil {
		return err
	}
	if !product.PerKg() && qty != math.Trunc(qty) {
		return ErrWholeQuantity
	}

	if _, ok := s.lines[productID]; !ok {
		s.order = append(s.order, productID)
	}
	s.lines[productID] = &Line{Product: product, Quantity: qty}
	return nil
}

// Add puts a product on the sale with its default quantity, or bumps a
// per-piece line by one.
func (s *Sale) Add(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.catalog.Product(productID)
	if err != nil {
		return err
	}
	if line, ok := s.lines[productID]; ok {
		if product.PerKg() {
			line.Quantity += DefaultQuantity(product)
		} else {
			line.Quantity++
		}
		return nil
	}
	s.order = append(s.order, productID)
	s.lines[productID] = &Line{Product: product, Quantity: DefaultQuantity(product)}
	return nil
}

// Remove drops a line from the sale.
func (s *Sale) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(productID)
}

func (s *Sale) remove(productID string) {
	if _, ok := s.lines[productID]; !ok {
		return
	}
	delete(s.lines, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Reset clears the sale for the next customer.
func (s *Sale) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[string]*Line)
	s.order = nil
}

// Lines returns the sale lines in insertion order.
func (s *Sale) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.lines[id])
	}
	return out
}

// Total is the VAT-inclusive sale total in euros.
func (s *Sale) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

func (s *Sale) total() float64 {
	var total float64
	for _, id := range s.order {
		total += s.lines[id].Subtotal()
	}
	return money.RoundCents(total)
}

// Empty reports whether the sale has no lines.
func (s *Sale) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) == 0
}

// describeQty renders a line quantity for the receipt.
func describeQty(line Line) string {
	if line.Product.PerKg() {
		return fmt.Sprintf("%s kg × %s/kg", money.FormatWeight(line.Quantity), money.FormatEUR(line.Product.UnitPrice))
	}
	return fmt.Sprintf("%dx %s", int64(line.Quantity), money.FormatEUR(line.Product.UnitPrice))
}
