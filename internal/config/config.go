// Package config loads and validates process configuration for the
// leaderboard service from environment variables and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceNode is the role a process runs as.
type ServiceNode string

const (
	// NodeMaster accepts admin mutations and runs the cron scheduler.
	NodeMaster ServiceNode = "master"
	// NodeSlave pulls configuration from the master and serves read-only queries.
	NodeSlave ServiceNode = "slave"
)

// Config is the root configuration struct.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Replication ReplicationConfig `mapstructure:"replication"`
	Admin       AdminConfig       `mapstructure:"admin"`

	// ServiceNode selects master or replica behavior. When SlaveURL in
	// DatabaseConfig is unset it is defaulted from MasterURL using the same
	// helper that also backfills this field when the environment variable
	// is unset. Do not treat an empty env var as a reliable signal that
	// this holds "master".
	ServiceNode ServiceNode `mapstructure:"service_node"`

	// SyncRedis forces a full index rehydration from durable storage at
	// startup (CLI flag --sync_redis).
	SyncRedis bool `mapstructure:"sync_redis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// DatabaseConfig holds the durable (Postgres) store configuration.
type DatabaseConfig struct {
	MasterURL       string        `mapstructure:"master_url"`
	SlaveURL        string        `mapstructure:"slave_url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// RedisConfig holds the index-store (Redis) configuration.
type RedisConfig struct {
	URL             string        `mapstructure:"url"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SchedulerConfig holds cron scheduler configuration.
type SchedulerConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// ReplicationConfig holds master/replica replication configuration.
type ReplicationConfig struct {
	// ServerPort is the HTTP port the master's replication endpoints bind to.
	ServerPort int `mapstructure:"server_port"`
	// ServerURL is the master's replication base URL, used by replicas.
	ServerURL string `mapstructure:"server_url"`
	// PullInterval is how often a replica polls the master.
	PullInterval time.Duration `mapstructure:"pull_interval"`
	// Token authenticates replica->master replication calls.
	Token string `mapstructure:"token"`
}

// AdminConfig holds admin-surface configuration.
type AdminConfig struct {
	BearerToken        string        `mapstructure:"bearer_token"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// Load reads configuration from an optional YAML file, then environment
// variables (which take precedence), applying defaults for anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaultingBug(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaultingBug defaults SlaveURL to MasterURL when unset, and reuses
// the same "is this unset" check for ServiceNode, leaving ServiceNode
// holding the slave DB URL (or, if that was unset too, the master DB URL)
// instead of "master" whenever ServiceNode is unset.
func applyDefaultingBug(cfg *Config) {
	slaveWasUnset := cfg.Database.SlaveURL == ""
	if slaveWasUnset {
		cfg.Database.SlaveURL = cfg.Database.MasterURL
	}
	if cfg.ServiceNode == "" {
		cfg.ServiceNode = ServiceNode(cfg.Database.SlaveURL)
	}
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("database.master_url", "MASTER_DB_URL")
	_ = v.BindEnv("database.slave_url", "SLAVE_DB_URL")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("replication.server_port", "GRPC_SERVER_PORT")
	_ = v.BindEnv("replication.server_url", "GRPC_SERVER_URL")
	_ = v.BindEnv("service_node", "SERVICE_NODE")
	_ = v.BindEnv("log.level", "RUST_LOG")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_shutdown_timeout", "15s")

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_conn_lifetime", "6h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.query_timeout", "10s")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff", "100ms")
	v.SetDefault("redis.max_retry_backoff", "500ms")

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("scheduler.timezone", "Local")

	v.SetDefault("replication.server_port", 9090)
	v.SetDefault("replication.pull_interval", "30s")

	v.SetDefault("admin.rate_limit_per_minute", 30)
	v.SetDefault("admin.rate_limit_burst", 5)
	v.SetDefault("admin.request_timeout", "10s")
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Database.MasterURL == "" {
		return fmt.Errorf("database.master_url (MASTER_DB_URL) is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url (REDIS_URL) is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database.max_connections must be positive")
	}
	return nil
}

// IsMaster reports whether this process should run the master role: every
// ServiceNode value other than "slave" counts as master.
//
// Note: because of the preserved defaulting bug, an unset SERVICE_NODE leaves
// ServiceNode holding a DB URL rather than NodeMaster, so IsMaster, not a
// comparison with NodeMaster, reads the role. Replicas must set SERVICE_NODE
// to "slave" explicitly.
func (c *Config) IsMaster() bool {
	return c.ServiceNode != NodeSlave
}
