package durablestore

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rankvault/leaderboard-service/internal/domain"
)

const createRankTableProc = `
CREATE TABLE rank_table_config (
	appid TEXT NOT NULL,
	app_secret TEXT NOT NULL,
	rank_key TEXT NOT NULL,
	cron_expression TEXT NOT NULL DEFAULT '',
	remark TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (appid, rank_key)
);

CREATE OR REPLACE FUNCTION CREATE_RANK_TABLE(p_appid TEXT, p_rank_key TEXT) RETURNS void AS $$
BEGIN
	EXECUTE format(
		'CREATE TABLE rank_%s_%s (openid TEXT PRIMARY KEY, nick_name TEXT NOT NULL, score BIGINT NOT NULL)',
		p_appid, p_rank_key);
END;
$$ LANGUAGE plpgsql;
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("rankvault"),
		tcpostgres.WithUsername("rankvault"),
		tcpostgres.WithPassword("rankvault"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.Default()
	pool, err := Connect(ctx, PoolConfig{
		Name:            "test",
		DSN:             dsn,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Hour,
		ConnectTimeout:  10 * time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Raw().Exec(ctx, createRankTableProc)
	require.NoError(t, err)

	return &Store{Master: pool, Replica: pool}
}

func TestStore_InsertConfigAndProvisionTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t", CronExpression: ""}
	require.NoError(t, store.InsertConfigAndProvisionTable(ctx, cfg))

	configs, err := store.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, cfg.AppID, configs[0].AppID)

	// The per-leaderboard table must exist and accept writes.
	err = store.UpsertScore(ctx, "acme", "daily", domain.UserScore{OpenID: "u1", NickName: "Alice", Score: 100})
	require.NoError(t, err)
}

func TestStore_InsertConfigAndProvisionTable_DuplicateIsUniqueViolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, store.InsertConfigAndProvisionTable(ctx, cfg))

	err := store.InsertConfigAndProvisionTable(ctx, cfg)
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))
}

func TestStore_UpsertAndGetScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "weekly", AppSecret: "s3cr3t"}
	require.NoError(t, store.InsertConfigAndProvisionTable(ctx, cfg))

	require.NoError(t, store.UpsertScore(ctx, "acme", "weekly", domain.UserScore{OpenID: "u1", NickName: "Alice", Score: 50}))
	require.NoError(t, store.UpsertScore(ctx, "acme", "weekly", domain.UserScore{OpenID: "u1", NickName: "Alice", Score: 70}))

	row, err := store.GetScore(ctx, "acme", "weekly", "u1")
	require.NoError(t, err)
	require.EqualValues(t, 70, row.Score)

	_, err = store.GetScore(ctx, "acme", "weekly", "missing")
	require.True(t, IsNotFound(err))
}

func TestStore_ClearAndPageDump(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "season", AppSecret: "s3cr3t"}
	require.NoError(t, store.InsertConfigAndProvisionTable(ctx, cfg))

	for i := 0; i < 5; i++ {
		openID := string(rune('a' + i))
		require.NoError(t, store.UpsertScore(ctx, "acme", "season", domain.UserScore{OpenID: openID, NickName: openID, Score: int64(i)}))
	}

	page, err := store.PageDump(ctx, "acme", "season", 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)

	require.NoError(t, store.Clear(ctx, "acme", "season"))
	page, err = store.PageDump(ctx, "acme", "season", 0, 100)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestStore_DeleteConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "monthly", AppSecret: "s3cr3t"}
	require.NoError(t, store.InsertConfigAndProvisionTable(ctx, cfg))
	require.NoError(t, store.DeleteConfig(ctx, "acme", "monthly"))

	configs, err := store.ListConfigs(ctx)
	require.NoError(t, err)
	require.Empty(t, configs)
}

var _ = pgx.ErrNoRows // keep pgx imported for IsNotFound's doc reference
