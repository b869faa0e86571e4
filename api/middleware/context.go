package middleware

import (
	"context"

	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessed contextKey = "access_record"
)

// accessRecord lets outer middleware see the actor that Auth resolved further
// down the chain once the handler has returned.
type accessRecord struct {
	actor types.Actor
	ok    bool
}

func withAccessRecord(ctx context.Context) (context.Context, *accessRecord) {
	rec := &accessRecord{}
	return context.WithValue(ctx, ctxAccessed, rec), rec
}

// ActorFromContext returns the authenticated actor seeded by Auth.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(types.Actor)
	return actor, ok
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if rec, ok := ctx.Value(ctxAccessed).(*accessRecord); ok {
		rec.actor, rec.ok = actor, true
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// RequireActor returns the authenticated actor or an unauthorized error.
func RequireActor(ctx context.Context) (types.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return actor, nil
}
