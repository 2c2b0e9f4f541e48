package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rankvault/leaderboard-service/internal/config"
	"github.com/rankvault/leaderboard-service/internal/migrate"
	"github.com/rankvault/leaderboard-service/pkg/logger"
)

var (
	configPath string
	downSteps  int
)

func main() {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the rank_table_config schema",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			return migrate.Up(cfg.Database.MasterURL, log)
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back one or more migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			return migrate.Down(cfg.Database.MasterURL, downSteps, log)
		},
	}
	downCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")
	root.AddCommand(downCmd)

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			return migrate.Status(cfg.Database.MasterURL, log)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfigAndLogger() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	return cfg, log, nil
}
