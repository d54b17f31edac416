package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemory()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	clock = clock.Add(2 * time.Minute)

	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	_, err := ConnectRedis("127.0.0.1", "1")
	assert.Error(t, err)
}

func TestInit_NoHostKeepsMemory(t *testing.T) {
	Init("", "")
	_, ok := Default.(*MemoryCache)
	assert.True(t, ok)
}
