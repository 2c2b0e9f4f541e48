// Package main is the entry point for the leaderboard service: it wires the
// durable store, index store, control plane, and HTTP API together and runs
// either as a master (admin mutations, cron resets, replication server) or a
// replica (read-only queries, replication client).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/rankvault/leaderboard-service/internal/config"
	"github.com/rankvault/leaderboard-service/internal/controlplane"
	"github.com/rankvault/leaderboard-service/internal/durablestore"
	"github.com/rankvault/leaderboard-service/internal/httpapi"
	"github.com/rankvault/leaderboard-service/internal/indexstore"
	"github.com/rankvault/leaderboard-service/internal/metrics"
	"github.com/rankvault/leaderboard-service/internal/migrate"
	"github.com/rankvault/leaderboard-service/internal/rankservice"
	"github.com/rankvault/leaderboard-service/internal/registry"
	"github.com/rankvault/leaderboard-service/internal/repository"
	"github.com/rankvault/leaderboard-service/internal/scheduler"
	"github.com/rankvault/leaderboard-service/pkg/logger"
)

const (
	serviceName    = "leaderboard-service"
	serviceVersion = "1.0.0"
)

func main() {
	var configPath = flag.String("config", "", "path to a YAML config file")
	var syncRedis = flag.Bool("sync_redis", false, "rehydrate the index store from durable storage at startup")
	var showVersion = flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *syncRedis {
		cfg.SyncRedis = true
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Info("starting leaderboard service",
		"service", serviceName, "version", serviceVersion, "node", cfg.ServiceNode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsMaster() {
		if err := migrate.Up(cfg.Database.MasterURL, log); err != nil {
			log.Error("database migrations failed", "error", err)
			os.Exit(1)
		}
	}

	durable, err := connectDurableStore(ctx, cfg, log)
	if err != nil {
		log.Error("connect durable store", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
	})
	defer redisClient.Close()

	index, err := indexstore.NewStore(ctx, redisClient, log)
	if err != nil {
		log.Error("connect index store", "error", err)
		os.Exit(1)
	}

	repo := repository.New(durable, index)
	reg := registry.New()
	sched := scheduler.New(log)

	var master *controlplane.Master
	var adminHandler *httpapi.AdminHandler

	if cfg.IsMaster() {
		master = controlplane.NewMaster(repo, reg, sched, log)
		if err := master.Startup(ctx, cfg.SyncRedis); err != nil {
			log.Error("master startup", "error", err)
			os.Exit(1)
		}
		adminHandler = httpapi.NewAdminHandler(master, log)
	} else {
		client := controlplane.NewHTTPReplicationClient(cfg.Replication.ServerURL, cfg.Replication.Token, cfg.Admin.RequestTimeout)
		replica := controlplane.NewReplica(repo, reg, client, cfg.Replication.PullInterval, log)
		if err := replica.Startup(ctx); err != nil {
			log.Error("replica startup", "error", err)
			os.Exit(1)
		}
		go replica.Run(ctx)
	}

	rankHandler := httpapi.NewRankHandler(rankservice.New(repo), log)
	var configHandler *httpapi.ConfigHandler
	if cfg.IsMaster() {
		configHandler = httpapi.NewConfigHandler(cfg, log)
	}
	router := httpapi.NewRouter(rankHandler, adminHandler, reg, cfg.Admin.BearerToken, httpapi.AdminRateLimit{
		PerMinute: cfg.Admin.RateLimitPerMinute, Burst: cfg.Admin.RateLimitBurst,
	}, configHandler)
	if master != nil {
		replicationRouter := mux.NewRouter()
		controlplane.RegisterReplicationRoutes(replicationRouter, master, cfg.Replication.Token)
		replicationAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Replication.ServerPort)
		go func() {
			log.Info("replication server starting", "addr", replicationAddr)
			if err := http.ListenAndServe(replicationAddr, replicationRouter); err != nil {
				log.Error("replication server failed", "error", err)
				os.Exit(1)
			}
		}()
	}
	router.Handle("/metrics", metrics.NewEndpointHandler(2*time.Second)).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      logger.LoggingMiddleware(log)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	sched.Stop()
	durable.Master.Close()
	if durable.Replica != durable.Master {
		durable.Replica.Close()
	}
	log.Info("server exited")
}

func connectDurableStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*durablestore.Store, error) {
	master, err := durablestore.Connect(ctx, durablestore.PoolConfig{
		Name: "master", DSN: cfg.Database.MasterURL,
		MaxConns: int32(cfg.Database.MaxConnections), MinConns: int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxConnLifetime, MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect master pool: %w", err)
	}

	if cfg.Database.SlaveURL == cfg.Database.MasterURL {
		return &durablestore.Store{Master: master, Replica: master}, nil
	}

	replica, err := durablestore.Connect(ctx, durablestore.PoolConfig{
		Name: "replica", DSN: cfg.Database.SlaveURL,
		MaxConns: int32(cfg.Database.MaxConnections), MinConns: int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxConnLifetime, MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, log)
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("connect replica pool: %w", err)
	}

	return &durablestore.Store{Master: master, Replica: replica}, nil
}
