package indexstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/resilience"
)

// retryPolicy retries index-store calls against transient Redis connection
// failures; redis.Nil misses are never retried.
func retryPolicy(operation string) *resilience.RetryPolicy {
	policy := resilience.DefaultRetryPolicy()
	policy.ErrorChecker = RetryChecker
	policy.OperationName = operation
	return policy
}

// Store wraps a go-redis client with the sorted-set/hash schema backing one
// leaderboard's latency index: a ZSET keyed "rank:{appid}:{rank_key}" mapping
// openid to its encoded score, and a hash keyed "userinfo:{appid}" mapping
// openid to nickname, shared across every rank_key under that appid.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore verifies connectivity and returns a Store.
func NewStore(ctx context.Context, client *redis.Client, logger *slog.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connectivity check failed: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

// Upsert writes the encoded score to the leaderboard's ZSET and the nickname
// to the appid's hash in one pipeline.
func (s *Store) Upsert(ctx context.Context, appID, rankKeyName, openID, nickName string, encodedScore float64) error {
	err := resilience.WithRetry(ctx, retryPolicy("index_upsert"), func() error {
		_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, rankKey(appID, rankKeyName), redis.Z{Score: encodedScore, Member: openID})
			pipe.HSet(ctx, userInfoKey(appID), openID, nickName)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("index upsert %s/%s/%s: %w", appID, rankKeyName, openID, err)
	}
	return nil
}

// GetScore reads the encoded score for one user. found is false if the user
// has no entry in the index.
func (s *Store) GetScore(ctx context.Context, appID, rankKeyName, openID string) (score float64, found bool, err error) {
	score, err = resilience.WithRetryFunc(ctx, retryPolicy("index_get_score"), func() (float64, error) {
		return s.client.ZScore(ctx, rankKey(appID, rankKeyName), openID).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("index get score %s/%s/%s: %w", appID, rankKeyName, openID, err)
	}
	return score, true, nil
}

// GetRank returns the 0-based rank of openID within the leaderboard, ordered
// highest score first. found is false if the user is not indexed.
func (s *Store) GetRank(ctx context.Context, appID, rankKeyName, openID string) (rank int64, found bool, err error) {
	rank, err = resilience.WithRetryFunc(ctx, retryPolicy("index_get_rank"), func() (int64, error) {
		return s.client.ZRevRank(ctx, rankKey(appID, rankKeyName), openID).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("index get rank %s/%s/%s: %w", appID, rankKeyName, openID, err)
	}
	return rank, true, nil
}

// GetTop returns up to n entries ordered by descending score, 1-based Ranking
// assigned in result order, nicknames hydrated from the appid's hash.
func (s *Store) GetTop(ctx context.Context, appID, rankKeyName string, n int64) ([]domain.IndexEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	zs, err := resilience.WithRetryFunc(ctx, retryPolicy("index_get_top"), func() ([]redis.Z, error) {
		return s.client.ZRevRangeWithScores(ctx, rankKey(appID, rankKeyName), 0, n-1).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("index get top %s/%s: %w", appID, rankKeyName, err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	openIDs := make([]string, len(zs))
	for i, z := range zs {
		openIDs[i], _ = z.Member.(string)
	}

	nickNames, err := resilience.WithRetryFunc(ctx, retryPolicy("index_get_nicknames"), func() ([]interface{}, error) {
		return s.client.HMGet(ctx, userInfoKey(appID), openIDs...).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("index get nicknames %s: %w", appID, err)
	}

	entries := make([]domain.IndexEntry, len(zs))
	for i, z := range zs {
		nickName := domain.UnknownNickName
		if i < len(nickNames) {
			if s, ok := nickNames[i].(string); ok && s != "" {
				nickName = s
			}
		}
		entries[i] = domain.IndexEntry{
			OpenID:   openIDs[i],
			NickName: nickName,
			Score:    int64(z.Score),
			Ranking:  int64(i) + 1,
		}
	}
	return entries, nil
}

// Count returns the number of indexed users for a leaderboard.
func (s *Store) Count(ctx context.Context, appID, rankKeyName string) (int64, error) {
	count, err := resilience.WithRetryFunc(ctx, retryPolicy("index_count"), func() (int64, error) {
		return s.client.ZCard(ctx, rankKey(appID, rankKeyName)).Result()
	})
	if err != nil {
		return 0, fmt.Errorf("index count %s/%s: %w", appID, rankKeyName, err)
	}
	return count, nil
}

// Clear removes the leaderboard's ZSET. The shared userinfo hash is left
// intact since other rank_keys under the same appid may still reference it.
func (s *Store) Clear(ctx context.Context, appID, rankKeyName string) error {
	err := resilience.WithRetry(ctx, retryPolicy("index_clear"), func() error {
		return s.client.Del(ctx, rankKey(appID, rankKeyName)).Err()
	})
	if err != nil {
		return fmt.Errorf("index clear %s/%s: %w", appID, rankKeyName, err)
	}
	return nil
}

// IsNotFound reports whether err signals an absent key or field.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
