package httpx

import (
	"context"
	"time"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// Identity is the request-scoped caller attached once an access credential
// has been accepted. It lives only as long as the request context.
type Identity struct {
	SubjectID int64
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the identity attached by the gate, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok
}
