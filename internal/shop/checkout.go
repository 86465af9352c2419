package shop

import (
	"context"
	"errors"
	"strings"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/catalog"
)

// State is the checkout lifecycle position.
type State string

const (
	// StateIdle: no checkout in progress.
	StateIdle State = "idle"
	// StateReviewing: checkout panel open, buyer reviewing the order.
	StateReviewing State = "reviewing"
	// StateDispatched: outbound mail link invoked; confirmation is assumed
	// because no platform signal exists for mail-client availability.
	StateDispatched State = "dispatched"
	// StateFallback: the manual fallback view replaced the confirmation.
	StateFallback State = "fallback"
)

var (
	// ErrNameRequired blocks submission without a buyer name.
	ErrNameRequired = errors.New("shop: name is required")
	// ErrTermsRequired blocks submission until the terms are accepted.
	ErrTermsRequired = errors.New("shop: terms must be accepted")
	// ErrNotReviewing rejects checkout actions outside the reviewing state.
	ErrNotReviewing = errors.New("shop: no checkout in progress")
	// ErrNotDispatched rejects the fallback before an order was dispatched.
	ErrNotDispatched = errors.New("shop: no dispatched order")
)

// Form carries buyer-entered checkout fields.
type Form struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Notes         string `json:"notes"`
	TermsAccepted bool   `json:"termsAccepted"`
}

// Dispatch is the result of a submitted order: the outbound message and the
// channels that can carry it. The mail link is fire-and-forget; the fallback
// view is always reachable from here.
type Dispatch struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	MailtoURL   string `json:"mailtoUrl"`
	WhatsAppURL string `json:"whatsappUrl"`
	Phone       string `json:"phone"`
}

// Fallback is the manual-delivery view: the same order text over every
// channel the buyer can drive by hand.
type Fallback struct {
	WhatsAppURL string `json:"whatsappUrl"`
	MailtoURL   string `json:"mailtoUrl"`
	OrderText   string `json:"orderText"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// State returns the current checkout state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginCheckout opens the review panel. Requires a non-empty cart.
func (s *Session) BeginCheckout(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.summarize()
	if sum.Empty {
		return sum, ErrEmptyCart
	}
	s.state = StateReviewing
	s.form = Form{}
	s.tracker.Track(ctx, analytics.BeginCheckout(s.analyticsItems(), sum.TotalPrice))
	return sum, nil
}

// CancelCheckout closes the review panel without touching the cart and
// reports the abandonment with the cart snapshot at time of cancellation.
func (s *Session) CancelCheckout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReviewing {
		return
	}
	sum := s.summarize()
	if !sum.Empty {
		s.tracker.Track(ctx, analytics.CheckoutAbandon("user_cancelled", s.analyticsItems(), sum.TotalPrice))
	}
	s.state = StateIdle
}

// SubmitOrder validates the form, builds the outbound order message, and
// moves to Dispatched. The caller invokes the mail link; success cannot be
// detected, so the confirmation is optimistic and the fallback stays offered.
func (s *Session) SubmitOrder(ctx context.Context, form Form) (Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return Dispatch{}, ErrNotReviewing
	}
	sum := s.summarize()
	if sum.Empty {
		return Dispatch{}, ErrEmptyCart
	}
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return Dispatch{}, ErrNameRequired
	}
	if !form.TermsAccepted {
		return Dispatch{}, ErrTermsRequired
	}
	form.Phone = strings.TrimSpace(form.Phone)
	form.Notes = catalog.SanitizeNote(form.Notes)
	s.form = form

	body := BuildOrderBody(sum, form)
	subject := OrderSubject(sum.BatchName)
	dispatch := Dispatch{
		Subject:     subject,
		Body:        body,
		MailtoURL:   MailtoURL(s.contact.Email, subject, body),
		WhatsAppURL: WhatsAppURL(s.contact.Phone, body),
		Phone:       s.contact.Phone,
	}

	s.tracker.Track(ctx, analytics.Purchase(s.analyticsItems(), sum.TotalPrice))
	s.state = StateDispatched
	return dispatch, nil
}

// ShowFallback replaces the confirmation with the manual-delivery view and
// records which channel the buyer reached for. method is one of
// retry_mailto, reopen_mailto, whatsapp, copy_order, manual_send.
func (s *Session) ShowFallback(ctx context.Context, method string) (Fallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDispatched && s.state != StateFallback {
		return Fallback{}, ErrNotDispatched
	}
	sum := s.summarize()
	body := BuildOrderBody(sum, s.form)
	subject := OrderSubject(sum.BatchName)

	if method == "" {
		method = "manual_send"
	}
	s.tracker.Track(ctx, analytics.OrderFallback(method))
	s.state = StateFallback

	return Fallback{
		WhatsAppURL: WhatsAppURL(s.contact.Phone, body),
		MailtoURL:   MailtoURL(s.contact.Email, subject, body),
		OrderText:   body,
		Email:       s.contact.Email,
		Phone:       s.contact.Phone,
	}, nil
}

// TrackContact records a direct contact interaction (phone call, whatsapp).
func (s *Session) TrackContact(ctx context.Context, method string) {
	s.tracker.Track(ctx, analytics.Contact(method, s.contact.Phone))
}
