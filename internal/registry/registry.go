// Package registry holds the process-wide in-memory configuration registry:
// the list of active leaderboards and the appid→secret map. Mutations are
// rare (admin RPCs, replication pulls); secret lookups are the hot path on
// every signed request, which is why the secret map is guarded separately
// from the config list.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/rankvault/leaderboard-service/internal/domain"
)

// Registry is process-wide, mutable, and shared across request handlers,
// the scheduler, and the replication pull loop.
type Registry struct {
	configsMu sync.Mutex
	configs   []domain.LeaderboardConfig

	secretsMu sync.RWMutex
	secrets   map[string]string

	updateTime atomic.Int64
}

func New() *Registry {
	return &Registry{secrets: make(map[string]string)}
}

// ListConfigs returns a snapshot copy; callers must not mutate it.
func (r *Registry) ListConfigs() []domain.LeaderboardConfig {
	r.configsMu.Lock()
	defer r.configsMu.Unlock()
	out := make([]domain.LeaderboardConfig, len(r.configs))
	copy(out, r.configs)
	return out
}

// GetSecret returns the secret for appid and whether it exists.
func (r *Registry) GetSecret(appID string) (string, bool) {
	r.secretsMu.RLock()
	defer r.secretsMu.RUnlock()
	secret, ok := r.secrets[appID]
	return secret, ok
}

// InsertConfig appends c to the config list. Callers are responsible for
// upserting the secret separately.
func (r *Registry) InsertConfig(c domain.LeaderboardConfig) {
	r.configsMu.Lock()
	defer r.configsMu.Unlock()
	r.configs = append(r.configs, c)
}

// RemoveConfig removes and returns the config for (appid, rank_key), or
// (zero, false) if none exists.
func (r *Registry) RemoveConfig(appID, rankKey string) (domain.LeaderboardConfig, bool) {
	r.configsMu.Lock()
	defer r.configsMu.Unlock()
	for i, c := range r.configs {
		if c.AppID == appID && c.RankKey == rankKey {
			r.configs = append(r.configs[:i], r.configs[i+1:]...)
			return c, true
		}
	}
	return domain.LeaderboardConfig{}, false
}

// CountByAppID counts configs sharing appid.
func (r *Registry) CountByAppID(appID string) int {
	r.configsMu.Lock()
	defer r.configsMu.Unlock()
	n := 0
	for _, c := range r.configs {
		if c.AppID == appID {
			n++
		}
	}
	return n
}

// ReplaceAll wholesale-replaces the config list and rebuilds the secret map.
// Used only by replication.
func (r *Registry) ReplaceAll(configs []domain.LeaderboardConfig) {
	secrets := make(map[string]string, len(configs))
	for _, c := range configs {
		secrets[c.AppID] = c.AppSecret
	}

	r.configsMu.Lock()
	r.configs = configs
	r.configsMu.Unlock()

	r.secretsMu.Lock()
	r.secrets = secrets
	r.secretsMu.Unlock()
}

// UpsertSecret sets the secret for appid.
func (r *Registry) UpsertSecret(appID, secret string) {
	r.secretsMu.Lock()
	defer r.secretsMu.Unlock()
	r.secrets[appID] = secret
}

// DropSecretIfLast removes the secret for removed.AppID if remainingCount
// (the count of configs sharing that appid counted before removal) was <= 1.
func (r *Registry) DropSecretIfLast(removed domain.LeaderboardConfig, remainingCount int) {
	if remainingCount > 1 {
		return
	}
	r.secretsMu.Lock()
	defer r.secretsMu.Unlock()
	delete(r.secrets, removed.AppID)
}

// BumpUpdateTime sets update_time to nowMs on the master, provided it moves
// the counter forward; it never regresses.
func (r *Registry) BumpUpdateTime(nowMs int64) {
	for {
		cur := r.updateTime.Load()
		if nowMs <= cur {
			return
		}
		if r.updateTime.CompareAndSwap(cur, nowMs) {
			return
		}
	}
}

// SetUpdateTime overwrites update_time unconditionally. Used by a replica
// applying a pulled snapshot's version cursor.
func (r *Registry) SetUpdateTime(v int64) {
	r.updateTime.Store(v)
}

// UpdateTime returns the current update_time.
func (r *Registry) UpdateTime() int64 {
	return r.updateTime.Load()
}
