package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
	"github.com/rankvault/leaderboard-service/internal/config"
)

// ConfigHandler serves the effective process configuration for operator
// inspection, with secrets redacted. Mounted only on the admin surface.
type ConfigHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewConfigHandler(cfg *config.Config, logger *slog.Logger) *ConfigHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigHandler{cfg: cfg, logger: logger}
}

// sanitized is the subset of Config safe to expose: everything except
// database DSNs, the replication token, and the admin bearer token.
type sanitized struct {
	Server      config.ServerConfig      `yaml:"server" json:"server"`
	Redis       struct{ DB, PoolSize int } `yaml:"redis" json:"redis"`
	Log         config.LogConfig         `yaml:"log" json:"log"`
	Scheduler   config.SchedulerConfig   `yaml:"scheduler" json:"scheduler"`
	ServiceNode config.ServiceNode       `yaml:"service_node" json:"service_node"`
	SyncRedis   bool                     `yaml:"sync_redis" json:"sync_redis"`
}

func (h *ConfigHandler) view() sanitized {
	out := sanitized{
		Server:      h.cfg.Server,
		Log:         h.cfg.Log,
		Scheduler:   h.cfg.Scheduler,
		ServiceNode: config.NodeSlave,
		SyncRedis:   h.cfg.SyncRedis,
	}
	// An unset SERVICE_NODE leaves ServiceNode holding the slave DB URL, so
	// the view reports the effective role rather than the raw field.
	if h.cfg.IsMaster() {
		out.ServiceNode = config.NodeMaster
	}
	out.Redis.DB = h.cfg.Redis.DB
	out.Redis.PoolSize = h.cfg.Redis.PoolSize
	return out
}

// GetConfig handles GET /api/rank/config?format=yaml|json (default json).
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	view := h.view()

	if format == "yaml" {
		body, err := yaml.Marshal(view)
		if err != nil {
			h.logger.Error("config export: yaml marshal failed", "error", err)
			writeError(w, apierrors.DbSomethingWentWrong(err))
			return
		}
		w.Header().Set("Content-Type", "text/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	writeOK(w, view)
}
