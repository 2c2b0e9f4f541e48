package durablestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"

	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/resilience"
)

// Store composes a master pool (read-write) and a replica pool (read-only)
// into the durable-store half of the repository layer.
type Store struct {
	Master  *Pool
	Replica *Pool
}

// writeRetryPolicy retries every Store operation (reads and writes alike)
// against transient pool/connection failures; it never retries a
// non-retryable error such as a unique-constraint violation or a missing row.
func writeRetryPolicy(operation string) *resilience.RetryPolicy {
	policy := resilience.DefaultRetryPolicy()
	policy.ErrorChecker = RetryChecker
	policy.OperationName = operation
	return policy
}

// identPattern bounds what may appear in a table name built from tenant
// input: table names cannot be parameterized, so appid/rank_key are
// re-validated here independent of any upstream request validation.
var identPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func rankTableName(appID, rankKey string) (string, error) {
	if !identPattern.MatchString(appID) || !identPattern.MatchString(rankKey) {
		return "", fmt.Errorf("appid/rank_key must be alphanumeric: %q/%q", appID, rankKey)
	}
	return fmt.Sprintf("rank_%s_%s", appID, rankKey), nil
}

// InsertConfigAndProvisionTable inserts the config row and provisions its
// per-leaderboard table under a single transaction: begin, insert, call
// CREATE_RANK_TABLE, commit on both successes, roll back on either failure.
func (s *Store) InsertConfigAndProvisionTable(ctx context.Context, cfg domain.LeaderboardConfig) error {
	return resilience.WithRetry(ctx, writeRetryPolicy("durable_insert_config"), func() error {
		tx, err := s.Master.Raw().Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		_, err = tx.Exec(ctx,
			`INSERT INTO rank_table_config (appid, app_secret, rank_key, cron_expression, remark)
			 VALUES ($1, $2, $3, $4, $5)`,
			cfg.AppID, cfg.AppSecret, cfg.RankKey, cfg.CronExpression, cfg.Remark)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `SELECT CREATE_RANK_TABLE($1, $2)`, cfg.AppID, cfg.RankKey); err != nil {
			return fmt.Errorf("provision table: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// DeleteConfig removes the config row for (appid, rank_key).
func (s *Store) DeleteConfig(ctx context.Context, appID, rankKey string) error {
	return resilience.WithRetry(ctx, writeRetryPolicy("durable_delete_config"), func() error {
		_, err := s.Master.Raw().Exec(ctx,
			`DELETE FROM rank_table_config WHERE appid = $1 AND rank_key = $2`, appID, rankKey)
		return err
	})
}

// ListConfigs loads every LeaderboardConfig from durable storage, used at
// startup by both master and replica.
func (s *Store) ListConfigs(ctx context.Context) ([]domain.LeaderboardConfig, error) {
	return resilience.WithRetryFunc(ctx, writeRetryPolicy("durable_list_configs"), func() ([]domain.LeaderboardConfig, error) {
		rows, err := s.Replica.Raw().Query(ctx,
			`SELECT appid, app_secret, rank_key, cron_expression, remark FROM rank_table_config`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var configs []domain.LeaderboardConfig
		for rows.Next() {
			var c domain.LeaderboardConfig
			if err := rows.Scan(&c.AppID, &c.AppSecret, &c.RankKey, &c.CronExpression, &c.Remark); err != nil {
				return nil, err
			}
			configs = append(configs, c)
		}
		return configs, rows.Err()
	})
}

// UpsertScore writes the durable record for one user, inserting or updating
// by openid within the leaderboard's table.
func (s *Store) UpsertScore(ctx context.Context, appID, rankKey string, row domain.UserScore) error {
	table, err := rankTableName(appID, rankKey)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (openid, nick_name, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (openid) DO UPDATE SET nick_name = EXCLUDED.nick_name, score = EXCLUDED.score`, table)
	return resilience.WithRetry(ctx, writeRetryPolicy("durable_upsert_score"), func() error {
		_, execErr := s.Master.Raw().Exec(ctx, sql, row.OpenID, row.NickName, row.Score)
		return execErr
	})
}

// GetScore reads the durable record for one user. Returns pgx.ErrNoRows if absent.
func (s *Store) GetScore(ctx context.Context, appID, rankKey, openID string) (domain.UserScore, error) {
	table, err := rankTableName(appID, rankKey)
	if err != nil {
		return domain.UserScore{}, err
	}

	sql := fmt.Sprintf(`SELECT openid, nick_name, score FROM %s WHERE openid = $1`, table)
	row, err := resilience.WithRetryFunc(ctx, writeRetryPolicy("durable_get_score"), func() (domain.UserScore, error) {
		var r domain.UserScore
		scanErr := s.Replica.Raw().QueryRow(ctx, sql, openID).Scan(&r.OpenID, &r.NickName, &r.Score)
		return r, scanErr
	})
	if err != nil {
		return domain.UserScore{}, err
	}
	return row, nil
}

// Clear truncates the leaderboard's table. Used by cron reset and delete.
func (s *Store) Clear(ctx context.Context, appID, rankKey string) error {
	table, err := rankTableName(appID, rankKey)
	if err != nil {
		return err
	}
	return resilience.WithRetry(ctx, writeRetryPolicy("durable_clear"), func() error {
		_, err := s.Master.Raw().Exec(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, table))
		return err
	})
}

// PageDump scans the leaderboard's table in stable (primary-key) order,
// returning up to pageSize rows starting at offset. Used by startup
// rehydration of the index.
func (s *Store) PageDump(ctx context.Context, appID, rankKey string, offset, pageSize int) ([]domain.UserScore, error) {
	table, err := rankTableName(appID, rankKey)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT openid, nick_name, score FROM %s ORDER BY openid LIMIT $1 OFFSET $2`, table)
	return resilience.WithRetryFunc(ctx, writeRetryPolicy("durable_page_dump"), func() ([]domain.UserScore, error) {
		rows, err := s.Replica.Raw().Query(ctx, sql, pageSize, offset)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []domain.UserScore
		for rows.Next() {
			var row domain.UserScore
			if err := rows.Scan(&row.OpenID, &row.NickName, &row.Score); err != nil {
				return nil, err
			}
			out = append(out, row)
		}
		return out, rows.Err()
	})
}

// IsNotFound reports whether err signals an absent row.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
