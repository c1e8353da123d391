// Package main provides the CLI entry point for the offline queue emulator
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	// Initialize logger
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load configuration from .env file and environment variables
	cfg = config.Load()
	logger.Debug().
		Str("endpoint", cfg.AWS.Endpoint).
		Str("region", cfg.AWS.Region).
		Str("prefix", cfg.SQS.Prefix).
		Msg("Configuration loaded")

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "sqsoffline",
		Short: "Offline SQS delivery emulator",
		Long: `sqsoffline emulates a queue-backed function runtime against a local
SQS-compatible backend such as LocalStack: it provisions queues with their
dead-letter queues, polls them, and drives handlers the way the managed
service does.`,
	}

	// Add subcommands
	rootCmd.AddCommand(
		newStartCmd(),
		newEnsureCmd(),
		newStatusCmd(),
		newSendCmd(),
		newInspectDlqCmd(),
		newReplayDlqCmd(),
		newFailuresCmd(),
		newCleanupCmd(),
	)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("Received shutdown signal")
		cancel()
	}()

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
