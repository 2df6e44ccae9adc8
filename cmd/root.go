package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/trackwise/internal/app"
	"github.com/abhisek/trackwise/internal/config"
	"github.com/abhisek/trackwise/internal/logging"
	"github.com/abhisek/trackwise/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "trackwise",
	Short:         "Schedule learning tracks and follow your progress",
	Long:          "Trackwise packs the lessons of a learning track into calendar sessions, records what you complete and derives streaks, stars and achievements.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TRACKWISE_DB env var)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL (overrides TRACKWISE_DATABASE_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies the global flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}
	if u, _ := cmd.Flags().GetString("database-url"); u != "" {
		cfg.DatabaseURL = u
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.LogLevel = l
	}
	if cfg.DatabaseURL == "" {
		if cfg.DBPath, err = resolveDBPath(cmd, cfg.DBPath); err != nil {
			return cfg, fmt.Errorf("resolve database path: %w", err)
		}
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then TRACKWISE_DB (from the environment or env file), then the default XDG path.
func resolveDBPath(cmd *cobra.Command, fromEnv string) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" {
		p = fromEnv
	}
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openApp builds the application for one command invocation.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return app.Open(cmd.Context(), cfg, logger)
}
