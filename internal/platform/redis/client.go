// Package redis connects the session and OTP stores to Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"trustid/internal/platform/config"
)

// Client is the process-wide Redis connection.
type Client struct {
	*redis.Client
}

// New returns nil, nil when no URL is configured; sessions and OTPs then
// stay in memory.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Collector exposes go-redis pool statistics, read at scrape time.
func (c *Client) Collector() prometheus.Collector {
	return &poolCollector{client: c.Client}
}

var (
	poolHitsDesc    = prometheus.NewDesc("trustid_redis_pool_hits_total", "Connections found free in the pool", nil, nil)
	poolMissesDesc  = prometheus.NewDesc("trustid_redis_pool_misses_total", "Connections that had to be dialled", nil, nil)
	poolTimeoutDesc = prometheus.NewDesc("trustid_redis_pool_timeouts_total", "Waits for a connection that timed out", nil, nil)
	poolStaleDesc   = prometheus.NewDesc("trustid_redis_pool_stale_conns_total", "Stale connections removed from the pool", nil, nil)
	poolConnsDesc   = prometheus.NewDesc("trustid_redis_pool_conns", "Connections in the pool by state", []string{"state"}, nil)
)

type poolCollector struct {
	client *redis.Client
}

func (pc *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolHitsDesc
	ch <- poolMissesDesc
	ch <- poolTimeoutDesc
	ch <- poolStaleDesc
	ch <- poolConnsDesc
}

func (pc *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := pc.client.PoolStats()
	ch <- prometheus.MustNewConstMetric(poolHitsDesc, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(poolMissesDesc, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(poolTimeoutDesc, prometheus.CounterValue, float64(s.Timeouts))
	ch <- prometheus.MustNewConstMetric(poolStaleDesc, prometheus.CounterValue, float64(s.StaleConns))
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(s.IdleConns), "idle")
	inUse := 0.0
	if s.TotalConns > s.IdleConns {
		inUse = float64(s.TotalConns - s.IdleConns)
	}
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, inUse, "in_use")
}
