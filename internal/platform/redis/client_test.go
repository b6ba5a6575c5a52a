package redis

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	c, err := New(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(config.RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
}

func TestCollectorReportsPoolStats(t *testing.T) {
	// No connection is made until the first command.
	c := &Client{Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})}
	t.Cleanup(func() { _ = c.Close() })

	collector := c.Collector()
	assert.Equal(t, 6, testutil.CollectAndCount(collector))

	expected := `
# HELP trustid_redis_pool_conns Connections in the pool by state
# TYPE trustid_redis_pool_conns gauge
trustid_redis_pool_conns{state="idle"} 0
trustid_redis_pool_conns{state="in_use"} 0
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected), "trustid_redis_pool_conns"))
}
