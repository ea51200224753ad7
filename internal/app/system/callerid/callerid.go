// Package callerid resolves the opaque caller identity once per request.
//
// Identity verification belongs to the upstream auth collaborator. This
// package only locates the id it already established, in order:
//   - the signed session cookie (user_id / user_name values)
//   - the X-User-Id / X-User-Name headers
//   - the userId / userName query parameters
//
// Handlers read the result with FromRequest and never look elsewhere.
package callerid

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"

	sessionUserID   = "user_id"
	sessionUserName = "user_name"
)

// Caller is the resolved identity of the requester.
type Caller struct {
	ID   string
	Name string
}

type ctxKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the caller stored in ctx, if any.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok && c.ID != ""
}

// FromRequest is FromContext(r.Context()).
func FromRequest(r *http.Request) (Caller, bool) {
	return FromContext(r.Context())
}

// Resolver locates the caller id for incoming requests.
type Resolver struct {
	store       sessions.Store
	sessionName string
	log         *zap.Logger
}

// NewResolver builds a Resolver. store may be nil, in which case the session
// cookie is not consulted.
func NewResolver(store sessions.Store, sessionName string, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, sessionName: sessionName, log: logger}
}

// NewCookieStore creates the cookie store shared with the auth collaborator.
func NewCookieStore(key, domain string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Middleware resolves the caller and stores it in the request context.
// Requests without an identity pass through unchanged; handlers decide
// whether identity is required.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := rv.Resolve(r); ok {
			r = r.WithContext(WithCaller(r.Context(), c))
		}
		next.ServeHTTP(w, r)
	})
}

// Resolve returns the caller for r without modifying it.
func (rv *Resolver) Resolve(r *http.Request) (Caller, bool) {
	if c, ok := rv.fromSession(r); ok {
		return c, true
	}
	if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
		return Caller{ID: id, Name: strings.TrimSpace(r.Header.Get(HeaderUserName))}, true
	}
	if id := strings.TrimSpace(query.Get(r, "userId")); id != "" {
		return Caller{ID: id, Name: strings.TrimSpace(query.Get(r, "userName"))}, true
	}
	return Caller{}, false
}

func (rv *Resolver) fromSession(r *http.Request) (Caller, bool) {
	if rv.store == nil {
		return Caller{}, false
	}
	if _, err := r.Cookie(rv.sessionName); err != nil {
		return Caller{}, false
	}
	sess, err := rv.store.Get(r, rv.sessionName)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			rv.log.Debug("ignoring undecodable session cookie", zap.Error(err))
		} else {
			rv.log.Warn("session lookup failed", zap.Error(err))
		}
		return Caller{}, false
	}
	id, _ := sess.Values[sessionUserID].(string)
	if strings.TrimSpace(id) == "" {
		return Caller{}, false
	}
	name, _ := sess.Values[sessionUserName].(string)
	return Caller{ID: strings.TrimSpace(id), Name: name}, true
}
