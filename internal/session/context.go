package session

import (
	"context"

	"github.com/salesdesk/salesdesk/internal/api"
)

type holderContextKey struct{}

// ContextWithHolder stores the holder in context.
func ContextWithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderContextKey{}, h)
}

// FromContext extracts the holder from context.
func FromContext(ctx context.Context) *Holder {
	h, _ := ctx.Value(holderContextKey{}).(*Holder)
	return h
}

// Credentials resolves the request's holder for the backend client.
func Credentials(ctx context.Context) api.Credentials {
	if h := FromContext(ctx); h != nil {
		return h
	}
	return nil
}

// Actor names the signed-in user for audit records.
func Actor(ctx context.Context) string {
	h := FromContext(ctx)
	if h == nil {
		return ""
	}
	if id, ok := h.Identity(); ok {
		return id.Email
	}
	return ""
}
