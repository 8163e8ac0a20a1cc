package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/config"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/database"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/kafka"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/conversation"
	"github.com/AndresDavidVV/ClinicaIA/pkg/doctor"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
	"github.com/AndresDavidVV/ClinicaIA/pkg/records"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	// Logs go to stderr so command output stays parseable.
	logger.SetOutput(os.Stderr)

	rootCmd := &cobra.Command{
		Use:   "copilotctl",
		Short: "Operator CLI for the clinical copilot pipeline",
	}
	rootCmd.PersistentFlags().Bool("quiet", false, "Only log errors")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			logger.Log.SetLevel(logrus.ErrorLevel)
		}
	}

	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(transcriptCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newProvider(cfg *config.Config) llm.ResponseProvider {
	rules, err := heuristic.LoadRules(cfg.HeuristicRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("heuristic rules not loaded, using built-in set")
	}
	return llm.NewProvider(cfg, heuristic.NewAnalyzer(rules))
}

func lookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <cedula>",
		Short: "Generate a second opinion for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			name, _ := cmd.Flags().GetString("as")

			principal := models.DefaultPrincipal(models.RoleDoctor, "")
			if name != "" {
				principal.Name = name
			}

			svc := doctor.NewService(records.NewAggregator(records.OpenStore(cfg)), newProvider(cfg), nil)
			out, err := svc.Review(cmd.Context(), principal, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().String("as", "", "Name recorded as the requesting doctor")
	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the data analyst a question in natural language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			session := conversation.NewSession(models.DefaultPrincipal(models.RoleAdmin, ""), newProvider(cfg), conversation.Options{})
			answer, err := session.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), answer)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the record and transcript tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.GetPostgres(cfg.PostgresDSN())
			if err != nil {
				return fmt.Errorf("connecting to record store: %w", err)
			}
			defer database.ClosePostgres()

			if err := records.NewRepository(db).AutoMigrate(); err != nil {
				return fmt.Errorf("migrating record tables: %w", err)
			}
			if err := conversation.NewTranscriptRepository(db).AutoMigrate(); err != nil {
				return fmt.Errorf("migrating transcript table: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func transcriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <session-id>",
		Short: "Print a persisted conversation in turn order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.GetPostgres(cfg.PostgresDSN())
			if err != nil {
				return fmt.Errorf("connecting to transcript store: %w", err)
			}
			defer database.ClosePostgres()

			turns, err := conversation.NewTranscriptRepository(db).ListBySession(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("loading transcript: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), turns)
		},
	}
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the audit event topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			group, _ := cmd.Flags().GetString("group")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.EventsTopic, group)
			defer consumer.Close()

			out := cmd.OutOrStdout()
			err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
				return printJSON(out, event)
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("group", "copilotctl", "Kafka consumer group")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
