package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey int

const TraceIdKey ctxKey = 1

// GetTraceIdOfRequest returns the trace id set by the logger middleware,
// or a fresh one when the request did not pass through it.
func GetTraceIdOfRequest(c *gin.Context) string {
	if traceId, ok := c.Request.Context().Value(TraceIdKey).(string); ok {
		return traceId
	}
	return uuid.NewString()
}

func WithTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, TraceIdKey, traceId)
}
