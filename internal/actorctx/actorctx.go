// Package actorctx carries the authenticated caller through context.Context so
// services below the HTTP layer can log who acted without importing gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/homeops/internal/domain/user"
)

type ctxKey struct{}

func With(ctx context.Context, actor user.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func From(ctx context.Context) (user.Context, bool) {
	v, ok := ctx.Value(ctxKey{}).(user.Context)
	return v, ok && v.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := From(ctx)
	return v.ID, ok
}
