package httpapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiter(t *testing.T) {
	t.Parallel()

	l := newLoginLimiter(0.001, 2)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.2"), "limits are per client")
}
