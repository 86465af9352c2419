package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/consent"
	"akkervarken.be/farmshop/internal/content"
	"akkervarken.be/farmshop/internal/orders"
	"akkervarken.be/farmshop/internal/pos"
	"akkervarken.be/farmshop/internal/shop"
)

const testCatalogYAML = `
batches:
  - id: B1
    name: Batch maart
    type: regular
    pickup_slots:
      - date: "2026-03-07"
        time: "17:00 - 19:00"
    products:
      - id: P1
        name: Braadworst
        price: 5.00
        weight_display: per stuk
      - id: P4
        name: Gehakt
        price: 9.00
        weight_display: per kg
        packaging_grams: 500
        expected_price: 4.50
  - id: B2
    name: Diepvries
    type: freezer
    pickup_text: Op afspraak
    products:
      - id: P2
        name: Spek
        price: 4.50
        weight_display: per stuk
`

const testSiteYAML = `
title: Akkervarken.be
slides:
  - image: /images/slide-1.jpg
  - image: /images/slide-2.jpg
contact:
  email: info@akkervarken.be
  phone: "+32494185076"
`

type memorySink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (m *memorySink) Send(_ context.Context, ev analytics.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *memorySink) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Name)
	}
	return out
}

type fixture struct {
	server *httptest.Server
	sink   *memorySink
	orders *orders.Repository
	cookie []*http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat, err := catalog.Parse([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("catalog.Parse: %v", err)
	}
	site, err := content.Parse([]byte(testSiteYAML))
	if err != nil {
		t.Fatalf("content.Parse: %v", err)
	}
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo, err := orders.NewRepository(db, nil)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	sink := &memorySink{}
	clock := func() time.Time {
		return time.Date(2026, time.March, 7, 17, 15, 0, 0, time.UTC)
	}

	h := New(Deps{
		Catalog: cat,
		Site:    site,
		Tracker: analytics.NewTracker(sink, consent.Granted),
		Orders:  repo,
		Payment: pos.Payment{
			IBAN:        "BE68539007547034",
			BIC:         "GKCCBEBB",
			Beneficiary: "Akkervarken",
			Remittance:  "Hoevewinkel",
		},
		Contact: shop.Contact{Email: "info@akkervarken.be", Phone: "+32494185076"},
		Admin:   AdminCredentials{Username: "admin", Password: "hunter2"},
		Clock:   clock,
	})

	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)
	return &fixture{server: server, sink: sink, orders: repo}
}

// do issues a request carrying the fixture's session and consent cookies and
// captures any cookies the server sets.
func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range f.cookie {
		req.AddCookie(c)
	}

	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 {
			f.dropCookie(c.Name)
			continue
		}
		f.setCookie(c)
	}
	return resp
}

func (f *fixture) setCookie(c *http.Cookie) {
	f.dropCookie(c.Name)
	f.cookie = append(f.cookie, c)
}

func (f *fixture) dropCookie(name string) {
	kept := f.cookie[:0]
	for _, c := range f.cookie {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	f.cookie = kept
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func (f *fixture) acceptCookies(t *testing.T) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/consent", map[string]string{"decision": "accepted"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("consent accept: status %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, err := f.server.Client().Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestConsentFlow(t *testing.T) {
	f := newFixture(t)

	var status struct {
		Status     string `json:"status"`
		ShowBanner bool   `json:"showBanner"`
	}
	decodeBody(t, f.do(t, http.MethodGet, "/api/consent", nil), &status)
	if status.Status != "" || !status.ShowBanner {
		t.Fatalf("initial consent = %+v, want unset with banner", status)
	}

	resp := f.do(t, http.MethodPost, "/api/consent", map[string]string{"decision": "maybe"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid decision: status %d", resp.StatusCode)
	}

	f.acceptCookies(t)
	decodeBody(t, f.do(t, http.MethodGet, "/api/consent", nil), &status)
	if status.Status != "accepted" || status.ShowBanner {
		t.Fatalf("after accept = %+v", status)
	}

	resp = f.do(t, http.MethodDelete, "/api/consent", nil)
	resp.Body.Close()
	decodeBody(t, f.do(t, http.MethodGet, "/api/consent", nil), &status)
	if status.Status != "" || !status.ShowBanner {
		t.Fatalf("after reset = %+v, want banner again", status)
	}
}

func TestAnalyticsGatedOnConsent(t *testing.T) {
	f := newFixture(t)

	// Without consent the catalog view must not emit events.
	resp := f.do(t, http.MethodGet, "/api/shop/catalog", nil)
	resp.Body.Close()
	if got := f.sink.names(); len(got) != 0 {
		t.Fatalf("expected no events before consent, got %v", got)
	}

	f.acceptCookies(t)
	resp = f.do(t, http.MethodGet, "/api/shop/catalog", nil)
	resp.Body.Close()
	got := f.sink.names()
	if len(got) != 1 || got[0] != analytics.EventViewItemList {
		t.Fatalf("expected view_item_list after consent, got %v", got)
	}
}

func TestShopCatalogLockedBatch(t *testing.T) {
	f := newFixture(t)
	f.acceptCookies(t)

	resp := f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{Intent: shop.IntentSet, ProductID: "P1", Quantity: "2"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set quantity: status %d", resp.StatusCode)
	}

	var view struct {
		LockedBatch string `json:"lockedBatch"`
		Batches     []struct {
			ID       string `json:"id"`
			Products []struct {
				ID       string  `json:"id"`
				Quantity float64 `json:"quantity"`
				Disabled bool    `json:"disabled"`
			} `json:"products"`
		} `json:"batches"`
	}
	decodeBody(t, f.do(t, http.MethodGet, "/api/shop/catalog", nil), &view)
	if view.LockedBatch != "B1" {
		t.Fatalf("lockedBatch = %q, want B1", view.LockedBatch)
	}
	for _, b := range view.Batches {
		for _, p := range b.Products {
			switch p.ID {
			case "P1":
				if p.Quantity != 2 || p.Disabled {
					t.Fatalf("P1 view = %+v", p)
				}
			case "P2":
				if !p.Disabled {
					t.Fatal("other-batch product must be disabled while locked")
				}
			}
		}
	}
}

func TestShopCrossBatchConflict(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{Intent: shop.IntentSet, ProductID: "P1", Quantity: "1"})
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{Intent: shop.IntentSet, ProductID: "P2", Quantity: "1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cross-batch status = %d, want 409", resp.StatusCode)
	}
	var body struct {
		Error          string `json:"error"`
		SelectedBatch  string `json:"selectedBatch"`
		AttemptedBatch string `json:"attemptedBatch"`
	}
	decodeBody(t, resp, &body)
	if body.Error != "batch_conflict" || body.SelectedBatch != "B1" || body.AttemptedBatch != "B2" {
		t.Fatalf("conflict body = %+v", body)
	}
}

func TestCheckoutFlowArchivesOrder(t *testing.T) {
	f := newFixture(t)
	f.acceptCookies(t)

	for _, cmd := range []shop.Command{
		{Intent: shop.IntentSet, ProductID: "P1", Quantity: "2"},
		{Intent: shop.IntentBegin},
	} {
		resp := f.do(t, http.MethodPost, "/api/shop/cart", cmd)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", cmd.Intent, resp.StatusCode)
		}
	}

	// Submission without a name is rejected and archives nothing.
	resp := f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{
		Intent: shop.IntentSubmit,
		Form:   shop.Form{TermsAccepted: true},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("nameless submit: status %d", resp.StatusCode)
	}

	var result shop.Result
	decodeBody(t, f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{
		Intent: shop.IntentSubmit,
		Form:   shop.Form{Name: "Jan Peeters", TermsAccepted: true},
	}), &result)
	if result.State != shop.StateDispatched || result.Dispatch == nil {
		t.Fatalf("submit result = %+v", result)
	}
	if !strings.HasPrefix(result.Dispatch.MailtoURL, "mailto:info@akkervarken.be") {
		t.Fatalf("mailto = %q", result.Dispatch.MailtoURL)
	}

	list, err := f.orders.List(context.Background())
	if err != nil {
		t.Fatalf("orders.List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 archived order, got %d", len(list))
	}
	if list[0].CustomerName != "Jan Peeters" || list[0].Total != 10.00 || list[0].Status != orders.StatusPending {
		t.Fatalf("archived order = %+v", list[0])
	}

	decodeBody(t, f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{
		Intent: shop.IntentFallback,
		Method: "whatsapp",
	}), &result)
	if result.State != shop.StateFallback || result.Fallback == nil {
		t.Fatalf("fallback result = %+v", result)
	}
	if !strings.HasPrefix(result.Fallback.WhatsAppURL, "https://wa.me/32494185076") {
		t.Fatalf("whatsapp = %q", result.Fallback.WhatsAppURL)
	}
}

func TestPOSFlow(t *testing.T) {
	f := newFixture(t)

	// Empty sale blocks receipt and QR.
	resp := f.do(t, http.MethodGet, "/api/pos/receipt", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty receipt: status %d", resp.StatusCode)
	}

	var view saleView
	decodeBody(t, f.do(t, http.MethodPost, "/api/pos/items", map[string]string{"productId": "P1", "quantity": "2"}), &view)
	decodeBody(t, f.do(t, http.MethodPost, "/api/pos/items", map[string]string{"productId": "P4", "quantity": "0,5"}), &view)
	if view.Total != 14.50 {
		t.Fatalf("total = %v, want 14.50", view.Total)
	}

	var qr struct {
		Payload string  `json:"payload"`
		Total   float64 `json:"total"`
	}
	decodeBody(t, f.do(t, http.MethodGet, "/api/pos/qr", nil), &qr)
	lines := strings.Split(qr.Payload, "\n")
	if len(lines) != 12 {
		t.Fatalf("payload lines = %d, want 12", len(lines))
	}
	if lines[7] != "EUR14.50" {
		t.Fatalf("amount line = %q", lines[7])
	}
	if lines[9] != "POS0703261715" {
		t.Fatalf("reference line = %q", lines[9])
	}

	resp = f.do(t, http.MethodGet, "/api/pos/receipt", nil)
	var receipt bytes.Buffer
	if _, err := receipt.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	resp.Body.Close()
	if !strings.Contains(receipt.String(), "TOTAAL (incl. btw): €14,50") {
		t.Fatalf("receipt missing total:\n%s", receipt.String())
	}

	decodeBody(t, f.do(t, http.MethodDelete, "/api/pos/items/P1", nil), &view)
	if len(view.Lines) != 1 || view.Lines[0].ProductID != "P4" {
		t.Fatalf("after remove = %+v", view.Lines)
	}

	decodeBody(t, f.do(t, http.MethodPost, "/api/pos/reset", nil), &view)
	if len(view.Lines) != 0 || view.Total != 0 {
		t.Fatalf("after reset = %+v", view)
	}
}

func TestAdminAuthAndLifecycle(t *testing.T) {
	f := newFixture(t)

	id, err := f.orders.Archive(context.Background(), orders.Order{
		CustomerName: "An",
		BatchID:      "B1",
		BatchName:    "Batch maart",
		Total:        5,
		Items:        []orders.Item{{ProductID: "P1", Name: "Braadworst", Quantity: 1, UnitPrice: 5, LineTotal: 5}},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	// No credentials.
	resp, err := f.server.Client().Get(f.server.URL + "/api/admin/orders")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status %d", resp.StatusCode)
	}

	adminReq := func(method, path string) *http.Response {
		req, err := http.NewRequest(method, f.server.URL+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.SetBasicAuth("admin", "hunter2")
		resp, err := f.server.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	// Wrong password.
	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/api/admin/orders", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err = f.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", resp.StatusCode)
	}

	var listBody struct {
		Orders []orders.Order `json:"orders"`
	}
	decodeBody(t, adminReq(http.MethodGet, "/api/admin/orders"), &listBody)
	if len(listBody.Orders) != 1 || listBody.Orders[0].ID != id {
		t.Fatalf("orders = %+v", listBody.Orders)
	}

	var advanced struct {
		Status orders.Status `json:"status"`
	}
	decodeBody(t, adminReq(http.MethodPost, "/api/admin/orders/"+id+"/advance"), &advanced)
	if advanced.Status != orders.StatusConfirm {
		t.Fatalf("status = %q, want confirmed", advanced.Status)
	}

	resp = adminReq(http.MethodGet, "/api/admin/orders/nope")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown order: status %d", resp.StatusCode)
	}
}

func TestHomeAndTrack(t *testing.T) {
	f := newFixture(t)
	f.acceptCookies(t)

	var site content.Site
	decodeBody(t, f.do(t, http.MethodGet, "/api/home", nil), &site)
	if site.Title != "Akkervarken.be" || len(site.Slides) != 2 {
		t.Fatalf("home = %+v", site)
	}

	var slide struct {
		Active int `json:"active"`
	}
	decodeBody(t, f.do(t, http.MethodPost, "/api/home/slideshow", map[string]any{"current": 1, "op": "next"}), &slide)
	if slide.Active != 0 {
		t.Fatalf("next from last slide = %d, want wrap to 0", slide.Active)
	}
	decodeBody(t, f.do(t, http.MethodPost, "/api/home/slideshow", map[string]any{"current": 0, "op": "prev"}), &slide)
	if slide.Active != 1 {
		t.Fatalf("prev from first slide = %d, want wrap to 1", slide.Active)
	}

	resp := f.do(t, http.MethodPost, "/api/track", map[string]string{"event": "contact", "method": "phone"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("track contact: status %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPost, "/api/track", map[string]string{"event": "cta_click", "label": "bestel-nu", "destination": "/webshop"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("track cta: status %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPost, "/api/track", map[string]string{"event": "purchase"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unknown event: status %d", resp.StatusCode)
	}

	names := f.sink.names()
	if len(names) != 2 || names[0] != analytics.EventContact || names[1] != analytics.EventCTAClick {
		t.Fatalf("events = %v", names)
	}
}

func TestSessionCookieIsolation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/shop/cart", shop.Command{Intent: shop.IntentSet, ProductID: "P1", Quantity: "1"})
	resp.Body.Close()

	// A fresh client without the session cookie sees an empty cart.
	other, err := f.server.Client().Get(f.server.URL + "/api/shop/cart")
	if err != nil {
		t.Fatal(err)
	}
	var sum shop.Summary
	if err := json.NewDecoder(other.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	other.Body.Close()
	if !sum.Empty {
		t.Fatalf("fresh session must be empty, got %+v", sum)
	}

	// The original session still holds its line.
	decodeBody(t, f.do(t, http.MethodGet, "/api/shop/cart", nil), &sum)
	if sum.Empty || sum.TotalQuantity != 1 {
		t.Fatalf("original session = %+v", sum)
	}
}
