package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leancoach/coach-backend/events/modules/activity"
	gqlschema "github.com/leancoach/coach-backend/graphql"
	"github.com/leancoach/coach-backend/internal/api"
	"github.com/leancoach/coach-backend/internal/coach"
	"github.com/leancoach/coach-backend/internal/config"
	"github.com/leancoach/coach-backend/internal/kafka"
	"github.com/leancoach/coach-backend/internal/pdf"
	"github.com/leancoach/coach-backend/internal/services"
	"github.com/leancoach/coach-backend/restapi"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/leancoach/coach-backend/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger := loadRuntime()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.JWTSecret != "" {
		auth.SetJWTSecret(cfg.Auth.JWTSecret)
	} else {
		secret, err := auth.GenerateSecureToken(32)
		if err != nil {
			return err
		}
		auth.SetJWTSecret(secret)
		logger.Warn("auth.jwt_secret is not set; sessions will not survive a restart")
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", zap.Error(err))
		return err
	}
	defer st.Close()

	mailer := auth.NewEmailConfig(cfg.SMTP)

	if cfg.Seed.Path != "" && util.FileExists(cfg.Seed.Path) {
		if err := applySeedFile(ctx, st, mailer, cfg.Seed.Path, logger); err != nil {
			logger.Warn("Startup seed failed", zap.String("path", cfg.Seed.Path), zap.Error(err))
		}
	}

	recorder, closeRecorder, err := newRecorder(ctx, cfg.Kafka, st, logger)
	if err != nil {
		return err
	}
	defer closeRecorder()

	var coachModel coach.Model
	if cfg.LLM.APIKey != "" {
		gemini, err := coach.NewGeminiModel(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			logger.Warn("AI coach disabled", zap.Error(err))
		} else {
			coachModel = gemini
			logger.Info("AI coach enabled", zap.String("model", gemini.Name()))
		}
	} else {
		logger.Info("llm.api_key is not set; chat endpoints answer 503")
	}
	renderer := pdf.NewRodRenderer(pdf.Options{
		PoolSize:   cfg.PDF.PoolSize,
		QueueSize:  cfg.PDF.QueueSize,
		Timeout:    cfg.PDF.Timeout,
		BrowserBin: cfg.PDF.BrowserBin,
	}, logger)
	defer func() { _ = renderer.Close() }()

	schema, err := gqlschema.CreateSchema(st)
	if err != nil {
		logger.Error("Failed to create GraphQL schema", zap.Error(err))
		return err
	}

	auth.StartInvitationCleanup(ctx, st, time.Hour)

	app := api.NewFiberApp(cfg.Server, restapi.Deps{
		Store:    st,
		Recorder: recorder,
		Coach:    coach.NewService(st, coachModel, cfg.LLM.Timeout),
		Exporter: &pdf.Exporter{Renderer: renderer},
		Mailer:   mailer,
		Schema:   schema,
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			logger.Warn("Shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Starting server",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("kafka", cfg.Kafka.Enabled))
	logger.Info("GraphQL endpoint available at /api/v1/graphql")

	return app.Listen(":" + cfg.Server.Port)
}

// newRecorder picks the activity recorder. With Kafka enabled, the API publishes
// and an in-process consumer persists the events into st.
func newRecorder(ctx context.Context, cfg config.KafkaConfig, st store.Store, logger *zap.Logger) (activity.Recorder, func(), error) {
	if !cfg.Enabled {
		return &services.StoreRecorder{Store: st}, func() {}, nil
	}

	producer := kafka.NewProducer(cfg)
	if err := kafka.RunEventProcessor(ctx, cfg, st, logger); err != nil {
		_ = producer.Close()
		logger.Error("Failed to start Kafka event processor", zap.Error(err))
		return nil, nil, err
	}

	rec := &services.KafkaRecorder{Publisher: producer, Fallback: st, Logger: logger}
	return rec, func() { _ = producer.Close() }, nil
}
