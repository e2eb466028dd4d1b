package utils

import (
	"context"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

type rqIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

// CreateCtxWithRqID builds a background context carrying a fresh request id.
// Used by scheduler jobs, which have no inbound request to inherit from.
func CreateCtxWithRqID() context.Context {
	return context.WithValue(context.Background(), rqIDKey{}, uuid.NewString())
}

// CreateCtxFromTele propagates the rqID set by the telegram logging
// middleware, or mints a new one when absent.
func CreateCtxFromTele(c tele.Context) context.Context {
	rqID, ok := c.Get("rqID").(string)
	if !ok {
		return CreateCtxWithRqID()
	}
	return context.WithValue(context.Background(), rqIDKey{}, rqID)
}
