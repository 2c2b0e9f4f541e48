package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rankvault/leaderboard-service/internal/domain"
)

func TestRegistry_InsertRemoveRoundTrip(t *testing.T) {
	r := New()
	cfg := domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"}
	r.InsertConfig(cfg)
	r.UpsertSecret(cfg.AppID, cfg.AppSecret)

	require.Len(t, r.ListConfigs(), 1)
	secret, ok := r.GetSecret("acme")
	require.True(t, ok)
	require.Equal(t, "s3cr3t", secret)

	removed, ok := r.RemoveConfig("acme", "daily")
	require.True(t, ok)
	require.Equal(t, cfg.AppSecret, removed.AppSecret)
	r.DropSecretIfLast(removed, 1)

	require.Empty(t, r.ListConfigs())
	_, ok = r.GetSecret("acme")
	require.False(t, ok)
}

func TestRegistry_DropSecretIfLast_KeepsSecretWhenSiblingConfigsRemain(t *testing.T) {
	r := New()
	r.InsertConfig(domain.LeaderboardConfig{AppID: "acme", RankKey: "daily", AppSecret: "s3cr3t"})
	r.InsertConfig(domain.LeaderboardConfig{AppID: "acme", RankKey: "weekly", AppSecret: "s3cr3t"})
	r.UpsertSecret("acme", "s3cr3t")

	before := r.CountByAppID("acme")
	removed, ok := r.RemoveConfig("acme", "daily")
	require.True(t, ok)
	r.DropSecretIfLast(removed, before)

	_, ok = r.GetSecret("acme")
	require.True(t, ok, "secret must survive while a sibling config remains")
}

func TestRegistry_RemoveConfig_NotFound(t *testing.T) {
	r := New()
	_, ok := r.RemoveConfig("acme", "daily")
	require.False(t, ok)
}

func TestRegistry_ReplaceAll_RebuildsSecretsWholesale(t *testing.T) {
	r := New()
	r.InsertConfig(domain.LeaderboardConfig{AppID: "old", RankKey: "x", AppSecret: "old-secret"})
	r.UpsertSecret("old", "old-secret")

	r.ReplaceAll([]domain.LeaderboardConfig{
		{AppID: "new", RankKey: "y", AppSecret: "new-secret"},
	})

	require.Len(t, r.ListConfigs(), 1)
	_, ok := r.GetSecret("old")
	require.False(t, ok)
	secret, ok := r.GetSecret("new")
	require.True(t, ok)
	require.Equal(t, "new-secret", secret)
}

func TestRegistry_BumpUpdateTime_NeverRegresses(t *testing.T) {
	r := New()
	r.BumpUpdateTime(100)
	r.BumpUpdateTime(50)
	require.EqualValues(t, 100, r.UpdateTime())
	r.BumpUpdateTime(200)
	require.EqualValues(t, 200, r.UpdateTime())
}

func TestRegistry_SetUpdateTime_OverwritesUnconditionally(t *testing.T) {
	r := New()
	r.BumpUpdateTime(200)
	r.SetUpdateTime(50)
	require.EqualValues(t, 50, r.UpdateTime())
}
