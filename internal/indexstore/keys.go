// Package indexstore provides go-redis-backed access to the latency-optimized
// sorted-set index: one ZSET per leaderboard holding openid→score, and one
// hash per appid holding openid→nickname. It is a rebuildable cache over the
// durable store, never the source of truth.
package indexstore

import "fmt"

func rankKey(appID, rankKeyName string) string {
	return fmt.Sprintf("rank:%s:%s", appID, rankKeyName)
}

func userInfoKey(appID string) string {
	return fmt.Sprintf("userinfo:%s", appID)
}
