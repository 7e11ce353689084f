package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
)

type contextKey string

const ctxOwnerID contextKey = "owner_id"

// WithOwnerID injects the authenticated owner into the context.
func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxOwnerID, ownerID)
}

// OwnerIDFromContext returns the owner the Auth middleware resolved.
func OwnerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxOwnerID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireOwner returns the authenticated owner or an UNAUTHORIZED error.
func RequireOwner(ctx context.Context) (uuid.UUID, error) {
	id, ok := OwnerIDFromContext(ctx)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner context missing")
	}
	return id, nil
}
