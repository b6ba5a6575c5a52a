//go:build integration

// Package containers starts the PostgreSQL, Redis and Kafka fixtures used by
// integration suites. Each container is started at most once per test binary.
package containers

import (
	"sync"
	"testing"
)

// lazy holds one container, started by the first suite that asks for it.
type lazy[T any] struct {
	mu    sync.Mutex
	value *T
}

func (l *lazy[T]) get(t *testing.T, start func(*testing.T) *T) *T {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.value == nil {
		l.value = start(t)
	}
	return l.value
}

type Manager struct {
	postgres lazy[PostgresContainer]
	redis    lazy[RedisContainer]
	kafka    lazy[KafkaContainer]
}

var shared = &Manager{}

func GetManager() *Manager { return shared }

// GetPostgres returns a migrated database.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, NewPostgresContainer)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return m.redis.get(t, NewRedisContainer)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return m.kafka.get(t, NewKafkaContainer)
}
