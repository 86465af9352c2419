package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/pos"
	"akkervarken.be/farmshop/internal/shop"
)

const (
	sessionCookieName = "farmshop_session"
	// sessionIdleTTL bounds how long an untouched session stays in memory.
	sessionIdleTTL = 2 * time.Hour
)

// sessionState is one visitor's server-side state: the webshop session and
// the POS sale live independently of each other.
type sessionState struct {
	Shop *shop.Session
	Sale *pos.Sale
}

type sessionEntry struct {
	state    *sessionState
	lastSeen time.Time
}

// SessionStore keeps live sessions keyed by the session cookie id. State is
// in-memory only; losing the process (or the cookie) loses the cart, which
// matches the page-lifetime model. Sessions idle past the TTL are evicted,
// so the store cannot grow without bound.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	build    func() *sessionState
	now      func() time.Time
	idleTTL  time.Duration
}

// NewSessionStore builds a store creating state with the given constructor.
func NewSessionStore(build func() *sessionState) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		build:    build,
		now:      time.Now,
		idleTTL:  sessionIdleTTL,
	}
}

func (st *SessionStore) get(id string) *sessionState {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	for sid, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.idleTTL {
			delete(st.sessions, sid)
		}
	}
	if e, ok := st.sessions[id]; ok {
		e.lastSeen = now
		return e.state
	}
	e := &sessionEntry{state: st.build(), lastSeen: now}
	st.sessions[id] = e
	return e.state
}

func (st *SessionStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

type sessionCtxKey struct{}

// Middleware assigns a session cookie when absent and attaches the session
// state to the request context. Only ids this server could have minted are
// honored; anything else is replaced with a fresh id, so clients cannot
// choose store keys. The session id doubles as the analytics client id.
func (st *SessionStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := analytics.WithClientID(r.Context(), id)
		ctx = context.WithValue(ctx, sessionCtxKey{}, st.get(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) *sessionState {
	s, _ := ctx.Value(sessionCtxKey{}).(*sessionState)
	return s
}
