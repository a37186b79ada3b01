package auth

import "context"

type contextKey string

const ownerKey contextKey = "owner_id"

// WithOwner returns a context carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerFrom returns the owner id stored by WithOwner.
func OwnerFrom(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerKey).(string)
	return ownerID, ok && ownerID != ""
}
