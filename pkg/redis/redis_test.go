package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "pit")

	require.NoError(t, cache.Set(ctx, "k", "v", TTLReport))

	var got string
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "k"))
}

func TestCache_GetOrSetComputesOnMiss(t *testing.T) {
	cache := NewCache(Disabled(), "pit")

	calls := 0
	var got map[string]float64
	hit, err := cache.GetOrSet(context.Background(), "k", &got, TTLReport, func() (interface{}, error) {
		calls++
		return map[string]float64{"A": 0.5}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0.5, got["A"])
}

func TestNilClientDisabled(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "report:abc:2024-01-01:2024-06-30", ReportKey("abc", "2024-01-01", "2024-06-30"))
	assert.Equal(t, "weights:prior:kospi_value", PriorWeightsKey("kospi_value"))
	assert.Equal(t, "sector:005930", SectorKey("005930"))
}
