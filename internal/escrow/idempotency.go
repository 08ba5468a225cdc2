package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "escrow:idem:"

// IdempotencyStore maps client-supplied idempotency keys to payment ids in
// Redis, so a retried funding request returns the original payment instead of
// charging twice.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyStore creates an idempotency store with the given key TTL.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &IdempotencyStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Lookup returns the payment id recorded for key, or "" if the key is unseen.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	paymentID, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	return paymentID, nil
}

// Record binds key to paymentID. The first writer wins; a concurrent attempt
// with the same key keeps the original binding.
func (s *IdempotencyStore) Record(ctx context.Context, key, paymentID string) error {
	set, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, paymentID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}

	if !set {
		s.logger.Warn("Idempotency key already recorded",
			slog.String("key", key),
			slog.String("payment_id", paymentID),
		)
	}

	return nil
}
