// package main provides the entry point for the LEAN AI COACH backend: the API
// server, the organization seed tool and the version command.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/leancoach/coach-backend/database"
	"github.com/leancoach/coach-backend/internal/config"
	"github.com/leancoach/coach-backend/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version set via ldflags during build
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "LEAN AI COACH backend",
	Long: `coach serves the LEAN AI COACH REST and GraphQL API.

Configuration is read from coach.yml (or --config) and COACH_* environment
variables, e.g. COACH_SERVER_PORT or COACH_LLM_API_KEY.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "coach", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.configPath, "config", "c", "", "Path to config file (default ./coach.yml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads the configuration and installs the global logger
func loadRuntime() (*config.Config, *zap.Logger) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := database.InitLoggerLevel(cfg.Log.Level)
	zap.ReplaceGlobals(logger)
	return cfg, logger
}

// openStore connects to the configured persistence backend
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Storage.Driver == config.DriverArango {
		db, err := database.InitializeDatabase(ctx, database.Config{
			URL:      cfg.Arango.URL,
			User:     cfg.Arango.User,
			Password: cfg.Arango.Pass,
			Database: cfg.Arango.Database,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store.NewArangoStore(db), nil
	}

	logger.Info("Using SQLite store", zap.String("path", cfg.Storage.SQLitePath))
	return store.OpenSQLite(cfg.Storage.SQLitePath)
}
