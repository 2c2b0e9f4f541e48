package controlplane

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rankvault/leaderboard-service/internal/registry"
	"github.com/rankvault/leaderboard-service/internal/repository"
)

// ReplicationClient is the replica side of the replication RPC. The
// transport (HTTP/JSON, gRPC, …) is an implementation detail behind this
// interface.
type ReplicationClient interface {
	GetLastUpdateTime(ctx context.Context) (int64, error)
	GetRankTableConfig(ctx context.Context) (Snapshot, error)
}

// Replica is the ConfigService replica role: it loads configs at startup
// identically to the master, then runs a pull loop that keeps its registry
// convergent with the master's without ever accepting admin mutations
// itself.
type Replica struct {
	repo     *repository.Repository
	registry *registry.Registry
	client   ReplicationClient
	interval time.Duration
	logger   *slog.Logger
}

func NewReplica(repo *repository.Repository, reg *registry.Registry, client ReplicationClient, interval time.Duration, logger *slog.Logger) *Replica {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{repo: repo, registry: reg, client: client, interval: interval, logger: logger}
}

// Startup loads configs from durable storage and populates the registry.
// It does not start the scheduler.
func (r *Replica) Startup(ctx context.Context) error {
	configs, err := r.repo.ListConfigs(ctx)
	if err != nil {
		return err
	}
	for _, c := range configs {
		r.registry.InsertConfig(c)
		r.registry.UpsertSecret(c.AppID, c.AppSecret)
	}
	r.registry.SetUpdateTime(time.Now().UnixMilli())
	return nil
}

// Run blocks, polling the master every interval until ctx is cancelled. A
// failed tick is logged and retried on the next tick; the registry is left
// unchanged on failure.
func (r *Replica) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pullOnce(ctx)
		}
	}
}

func (r *Replica) pullOnce(ctx context.Context) {
	correlationID := uuid.NewString()
	log := r.logger.With("correlation_id", correlationID)

	masterUpdateTime, err := r.client.GetLastUpdateTime(ctx)
	if err != nil {
		log.Warn("replication pull: get_last_update_time failed", "error", err)
		return
	}
	if masterUpdateTime == r.registry.UpdateTime() {
		return
	}

	snapshot, err := r.client.GetRankTableConfig(ctx)
	if err != nil {
		log.Warn("replication pull: get_rank_table_config failed", "error", err)
		return
	}

	r.registry.ReplaceAll(snapshot.Configs)
	r.registry.SetUpdateTime(snapshot.UpdateTime)
	log.Info("replication pull applied", "update_time", snapshot.UpdateTime, "configs", len(snapshot.Configs))
}
