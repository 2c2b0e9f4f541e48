// Package controlplane implements the two ConfigService roles: the master,
// which owns admin mutations, the cron scheduler, and the replication RPC
// server; and the replica, which runs a periodic pull loop against the
// master and applies snapshots into its own registry.
package controlplane

import (
	"context"
	"log/slog"
	"time"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/durablestore"
	"github.com/rankvault/leaderboard-service/internal/registry"
	"github.com/rankvault/leaderboard-service/internal/repository"
	"github.com/rankvault/leaderboard-service/internal/scheduler"
)

// Master is the ConfigService master role: it owns admin mutations and the
// scheduler, and serves the replication RPC read by replicas.
type Master struct {
	repo      *repository.Repository
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	// handles tracks the scheduler handle for each (appid, rank_key) that
	// has one, so delete can cancel it.
	handles map[string]scheduler.Handle
}

func handleKey(appID, rankKey string) string { return appID + "/" + rankKey }

func NewMaster(repo *repository.Repository, reg *registry.Registry, sched *scheduler.Scheduler, logger *slog.Logger) *Master {
	if logger == nil {
		logger = slog.Default()
	}
	return &Master{repo: repo, registry: reg, scheduler: sched, logger: logger, handles: make(map[string]scheduler.Handle)}
}

// Startup loads durable configs, populates the registry, optionally
// rehydrates the index, schedules cron jobs, and starts the scheduler.
// The replication RPC server is started separately by the caller.
func (m *Master) Startup(ctx context.Context, syncRedis bool) error {
	configs, err := m.repo.ListConfigs(ctx)
	if err != nil {
		return err
	}

	nowMs := time.Now().UnixMilli()
	for _, c := range configs {
		m.registry.InsertConfig(c)
		m.registry.UpsertSecret(c.AppID, c.AppSecret)
	}
	m.registry.SetUpdateTime(nowMs)

	if syncRedis {
		for _, c := range configs {
			if err := m.repo.RehydrateIndex(ctx, c.AppID, c.RankKey, 100); err != nil {
				return err
			}
		}
	}

	for _, c := range configs {
		if !c.HasCron() {
			continue
		}
		handle, err := m.scheduler.Schedule(c.CronExpression, m.resetCallback(c.AppID, c.RankKey))
		if err != nil {
			return err
		}
		m.handles[handleKey(c.AppID, c.RankKey)] = handle
	}

	m.scheduler.Start()
	return nil
}

func (m *Master) resetCallback(appID, rankKey string) func() {
	return func() {
		if err := m.repo.Clear(context.Background(), appID, rankKey); err != nil {
			m.logger.Error("cron reset failed", "appid", appID, "rank_key", rankKey, "error", err)
		}
	}
}

// AddLeaderboard validates and creates a new leaderboard config.
func (m *Master) AddLeaderboard(ctx context.Context, cfg domain.LeaderboardConfig) error {
	if err := scheduler.Validate(cfg.CronExpression); err != nil {
		return apierrors.RequestValidation("invalid cron expression")
	}

	if existingSecret, ok := m.registry.GetSecret(cfg.AppID); ok && existingSecret != cfg.AppSecret {
		return apierrors.RequestValidation("app_secret does not match the existing secret for this appid")
	}

	for _, c := range m.registry.ListConfigs() {
		if c.AppID == cfg.AppID && c.RankKey == cfg.RankKey {
			return apierrors.DbUniqueViolation(nil)
		}
	}

	if err := m.repo.InsertConfigAndProvisionTable(ctx, cfg); err != nil {
		if durablestore.IsUniqueViolation(err) {
			return apierrors.DbUniqueViolation(err)
		}
		return apierrors.DbSomethingWentWrong(err)
	}

	if cfg.HasCron() {
		handle, err := m.scheduler.Schedule(cfg.CronExpression, m.resetCallback(cfg.AppID, cfg.RankKey))
		if err == nil {
			m.handles[handleKey(cfg.AppID, cfg.RankKey)] = handle
		}
	}

	m.registry.InsertConfig(cfg)
	m.registry.UpsertSecret(cfg.AppID, cfg.AppSecret)
	m.registry.BumpUpdateTime(time.Now().UnixMilli())
	return nil
}

// DeleteLeaderboard removes a leaderboard config. Registry removal is the
// point of no return: subsequent durable/index failures are logged, not
// propagated.
func (m *Master) DeleteLeaderboard(ctx context.Context, appID, rankKey string) error {
	siblingCount := m.registry.CountByAppID(appID)

	removed, ok := m.registry.RemoveConfig(appID, rankKey)
	if !ok {
		return apierrors.User("no leaderboard configured for this appid and rank_key")
	}
	m.registry.BumpUpdateTime(time.Now().UnixMilli())
	m.registry.DropSecretIfLast(removed, siblingCount)

	if err := m.repo.DeleteConfig(ctx, appID, rankKey); err != nil {
		m.logger.Error("delete config row failed", "appid", appID, "rank_key", rankKey, "error", err)
	}
	if err := m.repo.Clear(ctx, appID, rankKey); err != nil {
		m.logger.Error("clear leaderboard data failed", "appid", appID, "rank_key", rankKey, "error", err)
	}

	if handle, ok := m.handles[handleKey(appID, rankKey)]; ok {
		m.scheduler.Cancel(handle)
		delete(m.handles, handleKey(appID, rankKey))
	}
	return nil
}

// Snapshot is the consistent (update_time, configs) pair served to replicas.
type Snapshot struct {
	UpdateTime int64
	Configs    []domain.LeaderboardConfig
}

// GetLastUpdateTime serves the replication RPC's first method.
func (m *Master) GetLastUpdateTime() int64 {
	return m.registry.UpdateTime()
}

// GetRankTableConfig serves the replication RPC's second method. The
// update_time is read before the config list so the returned pair is never
// newer than the configs: a concurrent mutation between the two reads can
// only make this snapshot look older than current (safe, re-pulled next
// tick), never newer (which would let a replica believe it is already
// caught up when it isn't).
func (m *Master) GetRankTableConfig() Snapshot {
	updateTime := m.registry.UpdateTime()
	configs := m.registry.ListConfigs()
	return Snapshot{UpdateTime: updateTime, Configs: configs}
}
