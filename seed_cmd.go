package main

import (
	"context"
	"fmt"

	"github.com/leancoach/coach-backend/internal/seed"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Create or update organizations, departments and users from a YAML file",
	Long: `Apply a seed file. Missing organizations, departments and users are created,
existing users get their role and department updated, and new users receive an
invitation. Applying the same file twice changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger := loadRuntime()
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return applySeedFile(ctx, st, auth.NewEmailConfig(cfg.SMTP), args[0], logger)
}

// applySeedFile loads, validates and applies one seed file
func applySeedFile(ctx context.Context, st store.Store, sender auth.InvitationSender, path string, logger *zap.Logger) error {
	seedCfg, err := seed.Load(path)
	if err != nil {
		return err
	}

	result, err := seed.Apply(ctx, st, sender, seedCfg)
	if err != nil {
		return err
	}

	logger.Info("Seed applied",
		zap.String("path", path),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("invited", len(result.Invited)),
		zap.Int("errors", len(result.Errors)))
	for _, e := range result.Errors {
		logger.Warn("Seed entry failed", zap.String("detail", e))
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("seed finished with %d errors", len(result.Errors))
	}
	return nil
}
