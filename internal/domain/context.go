package domain

import (
	"context"

	"github.com/google/uuid"
)

type runIDContextKey struct{}

// WithRunID tags ctx with the identifier of one allocation run so every log
// line and error of that run can be correlated.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDContextKey{}, id)
}

func RunIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDContextKey{}).(uuid.UUID)
	return id, ok
}

func ensureRunID(ctx context.Context) (context.Context, uuid.UUID) {
	if id, ok := RunIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.New()
	return WithRunID(ctx, id), id
}
