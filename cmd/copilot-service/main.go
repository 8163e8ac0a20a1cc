package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/config"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/database"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/kafka"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/conversation"
	"github.com/AndresDavidVV/ClinicaIA/pkg/dlp"
	"github.com/AndresDavidVV/ClinicaIA/pkg/doctor"
	"github.com/AndresDavidVV/ClinicaIA/pkg/gateway/routes"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
	"github.com/AndresDavidVV/ClinicaIA/pkg/records"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Log.WithError(err).Warn("failed to read .env file")
	}
	logger.Init()
	cfg := config.Load()

	rules, err := heuristic.LoadRules(cfg.HeuristicRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("heuristic rules not loaded, using built-in set")
	}
	analyzer := heuristic.NewAnalyzer(rules)
	provider := llm.NewProvider(cfg, analyzer)

	store := records.OpenStore(cfg)

	var (
		doctorEvents doctor.Publisher
		adminEvents  conversation.Publisher
	)
	if cfg.EventsEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()
		events := newRedactingPublisher(cfg, producer)
		doctorEvents = events
		adminEvents = events
	}

	opts := conversation.Options{Publisher: adminEvents}
	if cfg.TranscriptsEnabled {
		if db, err := database.GetPostgres(cfg.PostgresDSN()); err != nil {
			logger.Log.WithError(err).Warn("transcript persistence disabled")
		} else {
			transcripts := conversation.NewTranscriptRepository(db)
			if err := transcripts.AutoMigrate(); err != nil {
				logger.Log.WithError(err).Warn("failed to migrate transcript table")
			}
			opts.Recorder = transcripts
		}
	}

	router := routes.NewRouter(
		cfg.MaxRequestBody,
		routes.NewDoctorHandler(doctor.NewService(records.NewAggregator(store), provider, doctorEvents)),
		routes.NewAdminHandler(conversation.NewRegistry(provider, opts)),
		routes.NewMetricsHandler(provider),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Copilot service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down copilot service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("failed to close record store")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Warn("failed to close redis")
	}

	logger.Log.Info("Copilot service stopped")
}

func newRedactingPublisher(cfg *config.Config, next dlp.Publisher) *dlp.RedactingPublisher {
	rules, err := dlp.LoadRules(cfg.RedactionRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("redaction rules not loaded, using built-in set")
		rules = dlp.DefaultRules()
	}
	detector, err := dlp.NewDetector(rules)
	if err != nil {
		logger.Log.WithError(err).Warn("invalid redaction rules, using built-in set")
		detector, _ = dlp.NewDetector(dlp.DefaultRules())
	}
	return dlp.NewRedactingPublisher(detector, next)
}
