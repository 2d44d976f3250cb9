package beq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCache(t *testing.T) {
	cache := NewTTLCache[*Verdict]()

	_, ok := cache.Get("missing")
	require.False(t, ok)

	verdict := &Verdict{Status: SellabilityOK, Confidence: 0.8}
	cache.Put("token", verdict, time.Minute)

	got, ok := cache.Get("token")
	require.True(t, ok)
	require.Same(t, verdict, got)
}

func TestTTLCacheExpiry(t *testing.T) {
	cache := NewTTLCache[int]()
	cache.Put("k", 7, 10*time.Millisecond)

	v, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, 7, v)

	time.Sleep(30 * time.Millisecond)
	_, ok = cache.Get("k")
	require.False(t, ok)
}
