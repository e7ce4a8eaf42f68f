package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, time.Minute)

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte("1")
	require.NoError(t, s.Set(ctx, "k", value, time.Minute))
	value[0] = '0'

	got, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "k"))
	_, found, _ = s.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, time.Minute)

	require.NoError(t, s.Set(ctx, "short", []byte("1"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}
