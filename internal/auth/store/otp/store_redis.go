package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trustid/internal/auth/models"
	"trustid/pkg/platform/sentinel"
)

const (
	otpKeyPrefix  = "trustid:otp:"
	fieldCode     = "code"
	fieldAttempts = "attempts"
)

// RedisStore keeps codes in Redis hashes that expire with the code.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func otpKey(phone string, purpose models.OTPPurpose) string {
	return otpKeyPrefix + string(purpose) + ":" + phone
}

func (s *RedisStore) Save(ctx context.Context, otp *models.OTP) error {
	if otp == nil {
		return fmt.Errorf("otp is required")
	}
	ttl := time.Until(otp.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("otp already expired")
	}
	k := otpKey(otp.Phone, otp.Purpose)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, fieldCode, otp.Code, fieldAttempts, 0)
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// Consume checks code under WATCH so two concurrent correct guesses cannot
// both succeed. Redis key expiry stands in for the ExpiresAt check.
func (s *RedisStore) Consume(ctx context.Context, phone string, purpose models.OTPPurpose, code string, _ time.Time) error {
	k := otpKey(phone, purpose)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, k).Result()
		if err != nil {
			return fmt.Errorf("load otp: %w", err)
		}
		stored, ok := fields[fieldCode]
		if !ok {
			return fmt.Errorf("otp not found: %w", sentinel.ErrNotFound)
		}

		if codesMatch(stored, code) {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				return nil
			})
			return err
		}

		attempts, _ := strconv.Atoi(fields[fieldAttempts])
		attempts++
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if attempts >= models.MaxOTPAttempts {
				pipe.Del(ctx, k)
			} else {
				pipe.HSet(ctx, k, fieldAttempts, attempts)
			}
			return nil
		}); err != nil {
			return err
		}
		return fmt.Errorf("otp mismatch: %w", sentinel.ErrInvalidState)
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("otp changed concurrently: %w", sentinel.ErrInvalidState)
	}
	return err
}
