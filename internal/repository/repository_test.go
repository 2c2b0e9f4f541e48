package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/durablestore"
	"github.com/rankvault/leaderboard-service/internal/indexstore"
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

func newTestRepository(t *testing.T) *Repository {
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

	pool, err := durablestore.Connect(ctx, durablestore.PoolConfig{
		Name: "test", DSN: dsn, MaxConns: 5, MinConns: 1,
		MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Hour, ConnectTimeout: 10 * time.Second,
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Raw().Exec(ctx, createRankTableProc)
	require.NoError(t, err)

	durable := &durablestore.Store{Master: pool, Replica: pool}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	index, err := indexstore.NewStore(ctx, client, nil)
	require.NoError(t, err)

	return New(durable, index)
}

func TestRepository_UpsertScoreWritesDurableThenIndex(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, repo.InsertConfigAndProvisionTable(ctx, cfg))

	require.NoError(t, repo.UpsertScore(ctx, "acme", "daily", "u1", "Alice", 100))

	durableRow, err := repo.GetDurableScore(ctx, "acme", "daily", "u1")
	require.NoError(t, err)
	require.EqualValues(t, 100, durableRow.Score)

	indexScore, err := repo.GetIndexScore(ctx, "acme", "daily", "u1")
	require.NoError(t, err)
	require.EqualValues(t, 100, indexScore)
}

func TestRepository_GetIndexScoreAbsentSentinel(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, repo.InsertConfigAndProvisionTable(ctx, cfg))

	score, err := repo.GetIndexScore(ctx, "acme", "daily", "missing")
	require.NoError(t, err)
	require.Equal(t, domain.ScoreIndexAbsent, score)

	rank, err := repo.GetRank(ctx, "acme", "daily", "missing")
	require.NoError(t, err)
	require.Equal(t, domain.UnrankedRank, rank)
}

func TestRepository_GetTopOrdersByScoreWithEarlierSubmissionTieBreak(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, repo.InsertConfigAndProvisionTable(ctx, cfg))

	require.NoError(t, repo.UpsertScore(ctx, "acme", "daily", "u1", "Alice", 100))
	// The tie-break term has whole-second resolution, so the second
	// submission must land in a later second to be "later".
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, repo.UpsertScore(ctx, "acme", "daily", "u2", "Bob", 100))

	top, err := repo.GetTop(ctx, "acme", "daily", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "u1", top[0].OpenID)
	require.EqualValues(t, 1, top[0].Ranking)
	require.Equal(t, "u2", top[1].OpenID)
	require.EqualValues(t, 2, top[1].Ranking)
}

func TestRepository_ClearTruncatesDurableAndIndex(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, repo.InsertConfigAndProvisionTable(ctx, cfg))
	require.NoError(t, repo.UpsertScore(ctx, "acme", "daily", "u1", "Alice", 100))

	require.NoError(t, repo.Clear(ctx, "acme", "daily"))

	top, err := repo.GetTop(ctx, "acme", "daily", 10)
	require.NoError(t, err)
	require.Empty(t, top)

	page, err := repo.PageDump(ctx, "acme", "daily", 0, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestRepository_RehydrateIndexFillsFromDurableOnly(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, repo.InsertConfigAndProvisionTable(ctx, cfg))

	for i := 0; i < 3; i++ {
		openID := string(rune('a' + i))
		require.NoError(t, repo.durable.UpsertScore(ctx, "acme", "daily", domain.UserScore{
			OpenID: openID, NickName: openID, Score: int64(i * 10),
		}))
	}

	score, err := repo.GetIndexScore(ctx, "acme", "daily", "a")
	require.NoError(t, err)
	require.Equal(t, domain.ScoreIndexAbsent, score)

	require.NoError(t, repo.RehydrateIndex(ctx, "acme", "daily", 2))

	score, err = repo.GetIndexScore(ctx, "acme", "daily", "a")
	require.NoError(t, err)
	require.EqualValues(t, 0, score)
}
