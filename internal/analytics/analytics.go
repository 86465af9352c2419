// Package analytics centralizes e-commerce event dispatch. Events follow the
// GA4 e-commerce shape (currency/value/items) and are dropped silently when
// no sink is configured or consent has not been granted.
package analytics

import "context"

// Event names understood by the downstream analytics property.
const (
	EventViewItemList    = "view_item_list"
	EventAddToCart       = "add_to_cart"
	EventRemoveFromCart  = "remove_from_cart"
	EventViewCart        = "view_cart"
	EventBeginCheckout   = "begin_checkout"
	EventPurchase        = "purchase"
	EventCheckoutAbandon = "checkout_abandon"
	EventContact         = "contact"
	EventCTAClick        = "cta_click"
	EventOrderFallback   = "order_fallback"
)

const defaultCurrency = "EUR"

// Item is one product entry in an event payload.
type Item struct {
	ItemID       string  `json:"item_id"`
	ItemName     string  `json:"item_name"`
	ItemCategory string  `json:"item_category,omitempty"`
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity,omitempty"`
	Index        int     `json:"index,omitempty"`
}

// Event is a named analytics event with its e-commerce payload.
type Event struct {
	Name     string            `json:"name"`
	Currency string            `json:"currency,omitempty"`
	Value    float64           `json:"value,omitempty"`
	Items    []Item            `json:"items,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// Sink delivers events to an analytics backend. Delivery is fire-and-forget:
// failures never surface to callers.
type Sink interface {
	Send(ctx context.Context, ev Event)
}

// Tracker fans events out to a sink, applying an optional consent gate.
// A nil Tracker, nil sink, or denied gate all make Track a no-op.
type Tracker struct {
	sink Sink
	gate func(ctx context.Context) bool
}

// NewTracker builds a tracker. gate may be nil, which allows every event.
func NewTracker(sink Sink, gate func(ctx context.Context) bool) *Tracker {
	return &Tracker{sink: sink, gate: gate}
}

// Track dispatches the event when a sink is available and the gate allows it.
func (t *Tracker) Track(ctx context.Context, ev Event) {
	if t == nil || t.sink == nil || ev.Name == "" {
		return
	}
	if t.gate != nil && !t.gate(ctx) {
		return
	}
	t.sink.Send(ctx, ev)
}

// ViewItemList reports the catalog render on page load.
func ViewItemList(items []Item) Event {
	return Event{
		Name:     EventViewItemList,
		Currency: defaultCurrency,
		Items:    items,
		Params: map[string]string{
			"item_list_id":   "webshop_products",
			"item_list_name": "Webshop Producten",
		},
	}
}

// AddToCart reports the 0→positive transition of a line item.
func AddToCart(item Item) Event {
	item.Quantity = 1
	return Event{Name: EventAddToCart, Currency: defaultCurrency, Value: item.Price, Items: []Item{item}}
}

// RemoveFromCart reports the positive→0 transition of a line item.
func RemoveFromCart(item Item) Event {
	return Event{Name: EventRemoveFromCart, Currency: defaultCurrency, Value: item.Price * item.Quantity, Items: []Item{item}}
}

// ViewCart reports a cart summary render.
func ViewCart(items []Item, total float64) Event {
	return Event{Name: EventViewCart, Currency: defaultCurrency, Value: total, Items: items}
}

// BeginCheckout reports the checkout panel opening.
func BeginCheckout(items []Item, total float64) Event {
	return Event{Name: EventBeginCheckout, Currency: defaultCurrency, Value: total, Items: items}
}

// Purchase reports an order dispatch.
func Purchase(items []Item, total float64) Event {
	return Event{Name: EventPurchase, Currency: defaultCurrency, Value: total, Items: items}
}

// CheckoutAbandon reports the checkout panel closing with items still in the
// cart, carrying the snapshot and total at time of cancellation.
func CheckoutAbandon(reason string, items []Item, total float64) Event {
	return Event{
		Name:     EventCheckoutAbandon,
		Currency: defaultCurrency,
		Value:    total,
		Items:    items,
		Params:   map[string]string{"abandonment_reason": reason},
	}
}

// Contact reports a direct-contact interaction (phone, whatsapp, email).
func Contact(method, value string) Event {
	return Event{Name: EventContact, Params: map[string]string{"contact_method": method, "contact_value": value}}
}

// CTAClick reports a call-to-action click.
func CTAClick(buttonID, destination string) Event {
	return Event{Name: EventCTAClick, Params: map[string]string{"event_label": buttonID, "destination_url": destination}}
}

// OrderFallback reports which fallback channel carried an order
// (retry_mailto, whatsapp, copy_order, manual_send).
func OrderFallback(method string) Event {
	return Event{Name: EventOrderFallback, Params: map[string]string{"fallback_method": method}}
}
