package utils

import (
	"context"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

type rqIDKey struct{}

type bearerTokenKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

func CtxWithRqID(ctx context.Context, rqID string) context.Context {
	return context.WithValue(ctx, rqIDKey{}, rqID)
}

// CreateCtxWithRqID builds a fresh context carrying the request id set by the
// bot logging middleware, or a new one if the middleware didn't run.
func CreateCtxWithRqID(c tele.Context) context.Context {
	rqID, ok := c.Get("rqID").(string)
	if !ok {
		rqID = uuid.NewString()
	}
	return CtxWithRqID(context.Background(), rqID)
}

// GetBearerTokenFromCtx returns the caller's identity token. Empty string means
// the request carried no Authorization header.
func GetBearerTokenFromCtx(ctx context.Context) string {
	token, ok := ctx.Value(bearerTokenKey{}).(string)
	if !ok {
		return ""
	}
	return token
}

func CtxWithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}
