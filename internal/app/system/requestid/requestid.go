// Package requestid tags every request with an id that is echoed in the
// X-Request-Id response header and attached to log lines.
package requestid

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Header = "X-Request-Id"

// maxLen bounds ids accepted from upstream proxies.
const maxLen = 128

type ctxKey struct{}

// Middleware reuses a sane inbound X-Request-Id or mints a new UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxLen {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// FromContext returns the request id, or "" outside a request.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Field is a zap field carrying the request id of ctx.
func Field(ctx context.Context) zap.Field {
	return zap.String("request_id", FromContext(ctx))
}
