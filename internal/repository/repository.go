// Package repository composes the durable store and the index store into
// the operations the rest of the service calls: it hides both stores' key
// and table naming schemes and owns the score-encoding function that
// reconciles raw integer scores with the index's tie-broken float ordering.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/durablestore"
	"github.com/rankvault/leaderboard-service/internal/indexstore"
)

// WriteStage names which of the non-transactional upsert_score writes failed.
type WriteStage string

const (
	StageDurable WriteStage = "durable"
	StageIndex   WriteStage = "index"
)

// UpsertError reports which stage of the (durable, index) write sequence
// failed. Durable failure is fatal to the call; index failure after a
// durable success is reported but the durable write remains applied.
type UpsertError struct {
	Stage WriteStage
	Err   error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert_score failed at %s stage: %v", e.Stage, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// Repository composes the durable store and index store.
type Repository struct {
	durable *durablestore.Store
	index   *indexstore.Store
}

func New(durable *durablestore.Store, index *indexstore.Store) *Repository {
	return &Repository{durable: durable, index: index}
}

// UpsertScore writes durable first, then the index sorted-set entry and
// nickname hash. The writes are not transactional. Idempotent on
// re-submission of the same (openid, raw_score, nick).
func (r *Repository) UpsertScore(ctx context.Context, appID, rankKey, openID, nick string, rawScore int64) error {
	row := domain.UserScore{OpenID: openID, NickName: nick, Score: rawScore}
	if err := r.durable.UpsertScore(ctx, appID, rankKey, row); err != nil {
		return &UpsertError{Stage: StageDurable, Err: err}
	}

	encoded := encodeScore(rawScore, float64(time.Now().Unix()))
	if err := r.index.Upsert(ctx, appID, rankKey, openID, nick, encoded); err != nil {
		return &UpsertError{Stage: StageIndex, Err: err}
	}
	return nil
}

// GetDurableScore reads the authoritative record. Returns an error
// satisfying durablestore.IsNotFound if absent.
func (r *Repository) GetDurableScore(ctx context.Context, appID, rankKey, openID string) (domain.UserScore, error) {
	return r.durable.GetScore(ctx, appID, rankKey, openID)
}

// GetIndexScore returns the raw score from the index, or
// domain.ScoreIndexAbsent if the user has no index entry.
func (r *Repository) GetIndexScore(ctx context.Context, appID, rankKey, openID string) (int64, error) {
	encoded, found, err := r.index.GetScore(ctx, appID, rankKey, openID)
	if err != nil {
		return 0, err
	}
	if !found {
		return domain.ScoreIndexAbsent, nil
	}
	return decodeScore(encoded), nil
}

// GetRank returns a 1-based rank (highest encoded score = 1), or
// domain.UnrankedRank (0) if the user is absent from the index.
func (r *Repository) GetRank(ctx context.Context, appID, rankKey, openID string) (int64, error) {
	rank, found, err := r.index.GetRank(ctx, appID, rankKey, openID)
	if err != nil {
		return 0, err
	}
	if !found {
		return domain.UnrankedRank, nil
	}
	return rank + 1, nil
}

// GetTop returns up to n entries descending by encoded score, already
// decoded to raw integer scores and ranked 1..len(result). n <= 0 returns
// an empty list.
func (r *Repository) GetTop(ctx context.Context, appID, rankKey string, n int64) ([]domain.IndexEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	return r.index.GetTop(ctx, appID, rankKey, n)
}

// Clear truncates the durable table and deletes the sorted-set key.
// Independent failures are reported but do not block each other.
func (r *Repository) Clear(ctx context.Context, appID, rankKey string) error {
	durableErr := r.durable.Clear(ctx, appID, rankKey)
	indexErr := r.index.Clear(ctx, appID, rankKey)
	return errors.Join(durableErr, indexErr)
}

// PageDump scans the durable table in stable order.
func (r *Repository) PageDump(ctx context.Context, appID, rankKey string, offset, pageSize int) ([]domain.UserScore, error) {
	return r.durable.PageDump(ctx, appID, rankKey, offset, pageSize)
}

// InsertConfigAndProvisionTable inserts the config row and provisions its
// table under a single durable transaction. A unique-constraint violation
// is distinguishable via durablestore.IsUniqueViolation.
func (r *Repository) InsertConfigAndProvisionTable(ctx context.Context, cfg domain.LeaderboardConfig) error {
	return r.durable.InsertConfigAndProvisionTable(ctx, cfg)
}

// DeleteConfig removes the config row.
func (r *Repository) DeleteConfig(ctx context.Context, appID, rankKey string) error {
	return r.durable.DeleteConfig(ctx, appID, rankKey)
}

// ListConfigs loads every LeaderboardConfig from durable storage.
func (r *Repository) ListConfigs(ctx context.Context) ([]domain.LeaderboardConfig, error) {
	return r.durable.ListConfigs(ctx)
}

// RehydrateIndex pages through the durable table and upserts each record
// into the index only, skipping the durable write. Used by the
// --sync_redis startup path. Any failure aborts the whole rehydration.
func (r *Repository) RehydrateIndex(ctx context.Context, appID, rankKey string, pageSize int) error {
	offset := 0
	for {
		page, err := r.durable.PageDump(ctx, appID, rankKey, offset, pageSize)
		if err != nil {
			return fmt.Errorf("rehydrate %s/%s page at offset %d: %w", appID, rankKey, offset, err)
		}
		if len(page) == 0 {
			return nil
		}
		for _, row := range page {
			encoded := encodeScore(row.Score, float64(time.Now().Unix()))
			if err := r.index.Upsert(ctx, appID, rankKey, row.OpenID, row.NickName, encoded); err != nil {
				return fmt.Errorf("rehydrate %s/%s upsert %s: %w", appID, rankKey, row.OpenID, err)
			}
		}
		if len(page) < pageSize {
			return nil
		}
		offset += pageSize
	}
}
