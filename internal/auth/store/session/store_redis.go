package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trustid/internal/auth/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix     = "trustid:session:"
	userSessionKeyPrefix = "trustid:user_sessions:"

	// maxSessionsPerUser caps how many sessions ListByUser loads.
	maxSessionsPerUser = 100
)

type sessionJSON struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Device     string `json:"device"`
	IP         string `json:"ip"`
	CreatedAt  int64  `json:"created_at"`   // Unix nano
	ExpiresAt  int64  `json:"expires_at"`   // Unix nano
	LastSeenAt int64  `json:"last_seen_at"` // Unix nano
}

func sessionToJSON(s *models.Session) *sessionJSON {
	return &sessionJSON{
		ID:         s.ID.String(),
		UserID:     s.UserID.String(),
		Device:     s.Device,
		IP:         s.IP,
		CreatedAt:  s.CreatedAt.UnixNano(),
		ExpiresAt:  s.ExpiresAt.UnixNano(),
		LastSeenAt: s.LastSeenAt.UnixNano(),
	}
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	sessionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &models.Session{
		ID:         id.SessionID(sessionID),
		UserID:     id.UserID(userID),
		Device:     j.Device,
		IP:         j.IP,
		CreatedAt:  time.Unix(0, j.CreatedAt),
		ExpiresAt:  time.Unix(0, j.ExpiresAt),
		LastSeenAt: time.Unix(0, j.LastSeenAt),
	}, nil
}

func decodeSession(data string) (*models.Session, error) {
	var j sessionJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

// RedisStore shares sessions between server instances. Session keys expire
// with the token, so an expired session simply disappears.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func userSessionsKey(userID id.UserID) string {
	return userSessionKeyPrefix + userID.String()
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	userKey := userSessionsKey(session.UserID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)
	pipe.SAdd(ctx, userKey, session.ID.String())
	// The index outlives its longest session so ListByUser can prune it.
	pipe.ExpireGT(ctx, userKey, ttl+time.Hour)
	pipe.ExpireNX(ctx, userKey, ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return decodeSession(data)
}

func (s *RedisStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	userKey := userSessionsKey(userID)
	sessionIDs, err := s.client.SRandMemberN(ctx, userKey, maxSessionsPerUser).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids by user: %w", err)
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sid := range sessionIDs {
		cmds[i] = pipe.Get(ctx, sessionKeyPrefix+sid)
	}
	// redis.Nil for expired members is handled per command below.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(sessionIDs))
	var stale []any
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, sessionIDs[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune expired sessions: %w", err)
		}
	}
	return sessions, nil
}

// Touch records activity under an optimistic WATCH on the session key so a
// concurrent logout is never resurrected.
func (s *RedisStore) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	key := sessionKey(sessionID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get session for touch: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if !at.After(session.LastSeenAt) {
			return nil
		}
		session.LastSeenAt = at
		updated, err := json.Marshal(sessionToJSON(session))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionsKey(session.UserID), sessionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteByUserExcept(ctx context.Context, userID id.UserID, keep id.SessionID) (int, error) {
	userKey := userSessionsKey(userID)
	sessionIDs, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list session ids for delete: %w", err)
	}

	keepID := keep.String()
	var members []any
	pipe := s.client.TxPipeline()
	dels := make([]*redis.IntCmd, 0, len(sessionIDs))
	for _, sid := range sessionIDs {
		if !keep.IsNil() && sid == keepID {
			continue
		}
		dels = append(dels, pipe.Del(ctx, sessionKeyPrefix+sid))
		members = append(members, sid)
	}
	if len(members) == 0 {
		return 0, nil
	}
	pipe.SRem(ctx, userKey, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete sessions by user: %w", err)
	}

	removed := 0
	for _, cmd := range dels {
		removed += int(cmd.Val())
	}
	return removed, nil
}
