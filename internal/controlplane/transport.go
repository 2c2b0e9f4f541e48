package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rankvault/leaderboard-service/internal/domain"
)

type lastUpdateTimeResponse struct {
	UpdateTime int64 `json:"update_time"`
}

// RegisterReplicationRoutes mounts the master's replication RPC endpoints
// under /internal/replication, gated by a shared token distinct from the
// per-tenant signature scheme. An empty token disables the check, which is
// only appropriate for same-host testing.
func RegisterReplicationRoutes(router *mux.Router, master *Master, token string) {
	replication := router.PathPrefix("/internal/replication").Subrouter()
	replication.Use(replicationTokenMiddleware(token))

	replication.HandleFunc("/last_update_time", func(w http.ResponseWriter, r *http.Request) {
		resp := lastUpdateTimeResponse{UpdateTime: master.GetLastUpdateTime()}
		writeJSON(w, http.StatusOK, resp)
	}).Methods(http.MethodPost)

	replication.HandleFunc("/rank_table_config", func(w http.ResponseWriter, r *http.Request) {
		snapshot := master.GetRankTableConfig()
		resp := domain.RegistrySnapshot{UpdateTime: snapshot.UpdateTime}
		for _, c := range snapshot.Configs {
			resp.RankTableConfigs = append(resp.RankTableConfigs, domain.RankTableConfig{
				AppID: c.AppID, AppSecret: c.AppSecret, RankKey: c.RankKey, CronExpression: c.CronExpression,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}).Methods(http.MethodPost)
}

func replicationTokenMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HTTPReplicationClient is the HTTP/JSON ReplicationClient implementation
// used by a replica to poll the master.
type HTTPReplicationClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewHTTPReplicationClient(baseURL, token string, timeout time.Duration) *HTTPReplicationClient {
	return &HTTPReplicationClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: timeout}}
}

func (c *HTTPReplicationClient) GetLastUpdateTime(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/replication/last_update_time", nil)
	if err != nil {
		return 0, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("get_last_update_time: unexpected status %d", resp.StatusCode)
	}

	var out lastUpdateTimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.UpdateTime, nil
}

func (c *HTTPReplicationClient) GetRankTableConfig(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/replication/rank_table_config", nil)
	if err != nil {
		return Snapshot{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("get_rank_table_config: unexpected status %d", resp.StatusCode)
	}

	var out domain.RegistrySnapshot
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Snapshot{}, err
	}

	configs := make([]domain.LeaderboardConfig, len(out.RankTableConfigs))
	for i, c := range out.RankTableConfigs {
		configs[i] = domain.LeaderboardConfig{
			AppID: c.AppID, AppSecret: c.AppSecret, RankKey: c.RankKey, CronExpression: c.CronExpression,
		}
	}
	return Snapshot{UpdateTime: out.UpdateTime, Configs: configs}, nil
}
