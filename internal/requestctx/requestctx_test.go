package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	ctx := WithClientIP(WithRequestID(context.Background(), "req-1"), "203.0.113.9")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "203.0.113.9", GetClientIP(ctx))
	assert.Equal(t, []any{"requestId", "req-1", "clientIp", "203.0.113.9"}, LogAttrs(ctx))
}

func TestEmptyContext(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, LogAttrs(context.Background()))
}
