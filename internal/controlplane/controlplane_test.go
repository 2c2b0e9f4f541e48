package controlplane

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/durablestore"
	"github.com/rankvault/leaderboard-service/internal/indexstore"
	"github.com/rankvault/leaderboard-service/internal/registry"
	"github.com/rankvault/leaderboard-service/internal/repository"
	"github.com/rankvault/leaderboard-service/internal/scheduler"
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

func newTestRepo(t *testing.T) *repository.Repository {
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

	return repository.New(durable, index)
}

func TestMaster_AddThenDeleteRestoresRegistryState(t *testing.T) {
	repo := newTestRepo(t)
	reg := registry.New()
	sched := scheduler.New(nil)
	master := NewMaster(repo, reg, sched, nil)

	require.NoError(t, master.Startup(context.Background(), false))

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, master.AddLeaderboard(context.Background(), cfg))
	require.Len(t, reg.ListConfigs(), 1)
	secret, ok := reg.GetSecret("acme")
	require.True(t, ok)
	require.Equal(t, "s3cr3t", secret)

	require.NoError(t, master.DeleteLeaderboard(context.Background(), "acme", "daily"))
	require.Empty(t, reg.ListConfigs())
	_, ok = reg.GetSecret("acme")
	require.False(t, ok, "secret must be dropped when no sibling config remains")
}

func TestMaster_AddLeaderboard_DuplicateIsUniqueViolation(t *testing.T) {
	repo := newTestRepo(t)
	reg := registry.New()
	sched := scheduler.New(nil)
	master := NewMaster(repo, reg, sched, nil)
	require.NoError(t, master.Startup(context.Background(), false))

	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	require.NoError(t, master.AddLeaderboard(context.Background(), cfg))

	err := master.AddLeaderboard(context.Background(), cfg)
	require.Error(t, err)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.SubUniqueViolation, apiErr.Subkind)
}

func TestMaster_AddLeaderboard_RejectsMismatchedSecret(t *testing.T) {
	repo := newTestRepo(t)
	reg := registry.New()
	sched := scheduler.New(nil)
	master := NewMaster(repo, reg, sched, nil)
	require.NoError(t, master.Startup(context.Background(), false))

	require.NoError(t, master.AddLeaderboard(context.Background(), domain.LeaderboardConfig{
		AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t",
	}))

	err := master.AddLeaderboard(context.Background(), domain.LeaderboardConfig{
		AppID: "acme", RankKey: "weekly", AppSecret: "different-secret",
	})
	require.Error(t, err)
}

func TestMaster_AddLeaderboard_RejectsInvalidCron(t *testing.T) {
	repo := newTestRepo(t)
	reg := registry.New()
	sched := scheduler.New(nil)
	master := NewMaster(repo, reg, sched, nil)
	require.NoError(t, master.Startup(context.Background(), false))

	err := master.AddLeaderboard(context.Background(), domain.LeaderboardConfig{
		AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t", CronExpression: "garbage",
	})
	require.Error(t, err)
}

func TestReplicationPull_ConvergesRegistry(t *testing.T) {
	repo := newTestRepo(t)
	masterReg := registry.New()
	sched := scheduler.New(nil)
	master := NewMaster(repo, masterReg, sched, nil)
	require.NoError(t, master.Startup(context.Background(), false))

	router := mux.NewRouter()
	RegisterReplicationRoutes(router, master, "replication-secret")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	require.NoError(t, master.AddLeaderboard(context.Background(), domain.LeaderboardConfig{
		AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t",
	}))

	client := NewHTTPReplicationClient(server.URL, "replication-secret", 5*time.Second)
	replicaReg := registry.New()
	replica := NewReplica(repo, replicaReg, client, time.Hour, nil)

	ctx := context.Background()
	replica.pullOnce(ctx)

	require.Len(t, replicaReg.ListConfigs(), 1)
	secret, ok := replicaReg.GetSecret("acme")
	require.True(t, ok)
	require.Equal(t, "s3cr3t", secret)
	require.Equal(t, masterReg.UpdateTime(), replicaReg.UpdateTime())
}
