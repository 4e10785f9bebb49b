package middleware

import (
	"context"
	"net/http"

	"github.com/wastepay/payment-service/internal/api/httpx"
)

// The upstream API gateway authenticates callers and forwards their
// identity in x-client-id / x-role. This service trusts those headers and
// performs no authentication of its own.

type identityKey struct{}

type Identity struct {
	ClientID string
	Role     string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) Identity {
	if v := ctx.Value(identityKey{}); v != nil {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}

// RequireIdentity rejects requests that arrived without a forwarded client
// id, which only happens when the route was hit directly rather than
// through the gateway.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.Header.Get("x-client-id")
		if clientID == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing gateway identity headers", nil)
			return
		}
		id := Identity{ClientID: clientID, Role: r.Header.Get("x-role")}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
