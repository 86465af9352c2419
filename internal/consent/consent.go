// Package consent manages the analytics cookie-consent decision. A single
// cookie stores the visitor's choice; its value gates analytics dispatch.
package consent

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the consent cookie set on the shop domain.
const CookieName = "cookie_consent"

const expiryDays = 365

// Status is the visitor's recorded consent decision.
type Status string

const (
	// Unset means no decision was made yet; the banner should show.
	Unset Status = ""
	// Accepted enables analytics dispatch.
	Accepted Status = "accepted"
	// Declined disables analytics dispatch.
	Declined Status = "declined"
)

type ctxKey struct{}

// FromRequest reads the consent decision off the request cookie.
func FromRequest(r *http.Request) Status {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Unset
	}
	switch Status(c.Value) {
	case Accepted:
		return Accepted
	case Declined:
		return Declined
	default:
		return Unset
	}
}

// Write records the decision for a year, shop-wide, SameSite=Lax.
func Write(w http.ResponseWriter, status Status) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(status),
		Path:     "/",
		Expires:  time.Now().Add(expiryDays * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the consent cookie so the banner shows again.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware stores the consent status on the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxKey{}, FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the status placed by Middleware.
func FromContext(ctx context.Context) Status {
	if s, ok := ctx.Value(ctxKey{}).(Status); ok {
		return s
	}
	return Unset
}

// Granted reports whether analytics may run for this request. This is the
// gate wired into the analytics tracker.
func Granted(ctx context.Context) bool {
	return FromContext(ctx) == Accepted
}
