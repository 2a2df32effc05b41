package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRateLimit(t *testing.T) {
	c := &Client{}
	WithRateLimit(5, 0)(c)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())

	WithRateLimit(0, 3)(c)
	assert.Nil(t, c.limiter)
}

func TestWaitHonoursContext(t *testing.T) {
	c := &Client{}
	WithRateLimit(0.001, 1)(c)
	require.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, c.wait(ctx))
}
