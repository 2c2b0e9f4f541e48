// Package domain holds the shared types of the leaderboard service: the
// configured identity of a leaderboard, the durable per-user record, and the
// registry snapshot exchanged between master and replica control planes.
package domain

// LeaderboardConfig is the configured existence of one leaderboard, identified
// by the pair (AppID, RankKey). All configs sharing an AppID share one secret.
type LeaderboardConfig struct {
	AppID          string
	RankKey        string
	AppSecret      string
	CronExpression string
	Remark         string

	// CronHandle is not populated: controlplane.Master keeps each reset job's
	// scheduler handle in its own map keyed by (appid, rank_key), so this
	// field is always nil.
	CronHandle any
}

// Identity returns the (appid, rank_key) pair identifying this config.
func (c LeaderboardConfig) Identity() (appID, rankKey string) {
	return c.AppID, c.RankKey
}

// HasCron reports whether this config has a non-empty cron expression.
func (c LeaderboardConfig) HasCron() bool {
	return c.CronExpression != ""
}

// UserScore is the durable per-user record for one leaderboard.
type UserScore struct {
	OpenID   string
	NickName string
	Score    int64
}

// IndexEntry is a single row of a top-N query result, ranks assigned 1..N in
// returned order.
type IndexEntry struct {
	OpenID   string
	NickName string
	Score    int64
	Ranking  int64
}

// RankTableConfig is the wire shape exchanged by the replication RPC: the
// subset of LeaderboardConfig fields a replica needs to rebuild its registry.
type RankTableConfig struct {
	AppID          string `json:"appid"`
	AppSecret      string `json:"app_secret"`
	RankKey        string `json:"rank_key"`
	CronExpression string `json:"cron_expression"`
}

// RegistrySnapshot is the payload of GetRankTableConfig: a consistent pairing
// of an update_time with the configs as of that version.
type RegistrySnapshot struct {
	UpdateTime       int64             `json:"update_time"`
	RankTableConfigs []RankTableConfig `json:"rank_table_configs"`
}

// ScoreIndexAbsent is the sentinel raw-score value signaling "not present in
// the index" — distinct from a legitimate raw score of zero.
const ScoreIndexAbsent int64 = -1

// UnrankedRank is returned by rank queries for a user absent from the index.
const UnrankedRank int64 = 0

// MinScore and MaxScore bound a legitimate raw score.
const (
	MinScore int64 = 0
	MaxScore int64 = 100_000_000
)

// UnknownNickName is substituted when a top-N entry has no nickname hash hit.
const UnknownNickName = "momo"
