package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	sqsoffline "github.com/civocr/serverless-offline-localstack-sqs"
)

// newClient builds an emulator client from the loaded configuration. The
// journal database is only opened when a command needs it.
func newClient(withJournal bool) (*sqsoffline.Client, error) {
	opts := []sqsoffline.Option{
		sqsoffline.WithConfig(cfg),
		sqsoffline.WithLogger(logger),
	}
	if withJournal {
		db, err := openDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to open journal database: %w", err)
		}
		opts = append(opts, sqsoffline.WithDatabase(db))
	}
	return sqsoffline.New(opts...)
}

// openDatabase opens the delivery-journal database per the configured driver.
func openDatabase() (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	switch cfg.Database.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Database,
		)
		return gorm.Open(mysql.Open(dsn), gormCfg)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Database,
		)
		return gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return gorm.Open(sqlite.Open(cfg.Database.Database), gormCfg)
	}
}

// descriptorByName finds the declared descriptor for a logical queue name.
func descriptorByName(client *sqsoffline.Client, queueName string) (sqsoffline.QueueDescriptor, error) {
	for _, d := range client.Descriptors() {
		if d.Name == queueName {
			return d, nil
		}
	}
	return sqsoffline.QueueDescriptor{}, fmt.Errorf("queue %q is not declared in the configuration", queueName)
}

// newStartCmd creates the start command: run the emulator until interrupted.
func newStartCmd() *cobra.Command {
	var metricsAddr string
	var logBodies bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Provision queues and run the delivery pollers",
		Long: `Provisions every declared queue and starts a poller per queue.

When used from the CLI there is no application code to call, so a logging
handler is registered for every configured handler reference: each delivered
event is written to the log and acknowledged. Embed the client in your own
process to bind real handlers instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), metricsAddr, logBodies)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&logBodies, "log-bodies", false, "Log full message bodies instead of just IDs")

	return cmd
}

func runStart(ctx context.Context, metricsAddr string, logBodies bool) error {
	if metricsAddr != "" {
		cfg.SQS.Prometheus.Enabled = true
	}

	client, err := newClient(cfg.Database.Driver != "")
	if err != nil {
		return err
	}
	defer client.Close()

	refs := make(map[string]bool)
	for _, d := range client.Descriptors() {
		if d.Handler == "" || refs[d.Handler] {
			continue
		}
		refs[d.Handler] = true
		client.RegisterHandler(d.Handler, loggingHandler(d.Handler, logBodies))
	}
	if len(refs) == 0 {
		logger.Warn().Msg("No handler references configured, queues will be provisioned but nothing will poll")
	}

	if metricsAddr != "" {
		if handler := client.MetricsHandler(); handler != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			go func() {
				logger.Info().Str("addr", metricsAddr).Msg("Serving Prometheus metrics")
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error().Err(err).Msg("Metrics server stopped")
				}
			}()
		}
	}

	if err := client.Start(ctx); err != nil {
		return err
	}
	logger.Info().Int("queues", len(client.Descriptors())).Msg("Emulator started")

	<-ctx.Done()
	client.Stop()
	return nil
}

// loggingHandler returns a handler that logs every delivered record.
func loggingHandler(ref string, logBodies bool) sqsoffline.Handler {
	return func(ctx context.Context, event sqsoffline.Event) error {
		for _, record := range event.Records {
			evt := logger.Info().
				Str("handler", ref).
				Str("message_id", record.MessageId)
			if logBodies {
				evt = evt.Str("body", record.Body)
			}
			evt.Msg("Delivered")
		}
		return nil
	}
}

// newEnsureCmd creates the ensure command
func newEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Ensure all declared queues exist",
		Long: `Creates every declared queue if it does not exist, dead-letter queue
first where a redrive policy is configured.

This command is useful for pre-creating queues before starting the emulator
or an application that expects them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsure(cmd.Context())
		},
	}
}

func runEnsure(ctx context.Context) error {
	client, err := newClient(false)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info().Int("queues", len(client.Descriptors())).Msg("Ensuring queues exist")

	if err := client.EnsureQueues(ctx); err != nil {
		return err
	}

	fmt.Printf("Ensured %d queues\n", len(client.Descriptors()))
	return nil
}

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display queue status",
		Long:  `Shows message and DLQ depth per declared queue, plus poller states.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), queueName)
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Limit to one queue")

	return cmd
}

func runStatus(ctx context.Context, queueName string) error {
	client, err := newClient(false)
	if err != nil {
		return err
	}
	defer client.Close()

	descs := client.Descriptors()
	if queueName != "" {
		d, err := descriptorByName(client, queueName)
		if err != nil {
			return err
		}
		descs = []sqsoffline.QueueDescriptor{d}
	}

	fmt.Printf("\n=== Queue Status ===\n")
	for _, d := range descs {
		status, err := client.Status(ctx, d)
		if err != nil {
			logger.Error().Str("queue", d.Name).Err(err).Msg("Failed to get queue status")
			continue
		}
		fmt.Printf("Queue: %s\n", status.QueueName)
		fmt.Printf("  URL: %s\n", status.QueueURL)
		fmt.Printf("  Messages: %d\n", status.MessageCount)
		if d.DeadLetter.Enabled {
			fmt.Printf("  DLQ messages: %d\n", status.DLQMessageCount)
			if status.DLQMessageCount > 0 {
				fmt.Printf("  WARNING: DLQ has messages that need attention!\n")
			}
		}
	}
	fmt.Printf("====================\n\n")

	return nil
}

// newSendCmd creates the send command for seeding test traffic
func newSendCmd() *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "send [queue]",
		Short: "Send a message to a declared queue",
		Long:  `Sends a raw message body to a declared queue through the same transport the pollers use.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), args[0], body)
		},
	}

	cmd.Flags().StringVarP(&body, "body", "b", "{}", "Message body")

	return cmd
}

func runSend(ctx context.Context, queueName, body string) error {
	client, err := newClient(false)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := descriptorByName(client, queueName); err != nil {
		return err
	}

	msgID, err := client.SendMessage(ctx, queueName, body)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	fmt.Printf("Sent message: %s\n", msgID)
	return nil
}

// newInspectDlqCmd creates the inspect DLQ command
func newInspectDlqCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect-dlq [queue]",
		Short: "Inspect messages in a queue's dead-letter queue",
		Long: `Views messages in a queue's DLQ without removing them. The messages
become visible again after the visibility timeout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectDlq(cmd.Context(), args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum messages to inspect")

	return cmd
}

func runInspectDlq(ctx context.Context, queueName string, limit int) error {
	client, err := newClient(false)
	if err != nil {
		return err
	}
	defer client.Close()

	desc, err := descriptorByName(client, queueName)
	if err != nil {
		return err
	}

	messages, err := client.InspectDLQ(ctx, desc, limit)
	if err != nil {
		return fmt.Errorf("failed to receive DLQ messages: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("No messages in DLQ")
		return nil
	}

	fmt.Printf("\n=== DLQ Messages for %s ===\n\n", queueName)
	for i, msg := range messages {
		fmt.Printf("--- Message %d ---\n", i+1)
		fmt.Printf("Message ID: %s\n", msg.ID)

		// Pretty print the body
		var prettyBody map[string]interface{}
		if err := json.Unmarshal([]byte(msg.Body), &prettyBody); err == nil {
			prettyJSON, _ := json.MarshalIndent(prettyBody, "", "  ")
			fmt.Printf("Body:\n%s\n", string(prettyJSON))
		} else {
			fmt.Printf("Body: %s\n", msg.Body)
		}
		fmt.Println()
	}

	return nil
}

// newReplayDlqCmd creates the replay DLQ command
func newReplayDlqCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "replay-dlq [queue]",
		Short: "Replay messages from a DLQ back to the main queue",
		Long: `Moves messages from a queue's DLQ back onto the main queue for
reprocessing. Envelope-wrapped messages are unwrapped so handlers see the
original body again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayDlq(cmd.Context(), args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum messages to replay")

	return cmd
}

func runReplayDlq(ctx context.Context, queueName string, limit int) error {
	client, err := newClient(false)
	if err != nil {
		return err
	}
	defer client.Close()

	desc, err := descriptorByName(client, queueName)
	if err != nil {
		return err
	}

	replayed, err := client.ReplayDLQ(ctx, desc, limit)
	if err != nil {
		return fmt.Errorf("failed to replay DLQ messages: %w", err)
	}

	fmt.Printf("Replayed %d messages from DLQ\n", replayed)
	return nil
}

// newFailuresCmd creates the failures command showing recent journal rows
func newFailuresCmd() *cobra.Command {
	var queueName string
	var limit int

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Show recent delivery failures from the journal",
		Long: `Lists the most recent delivery-journal rows: messages that were
redriven to a DLQ or exhausted their retry budget without one. Requires the
journal database to be configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFailures(cmd.Context(), queueName, limit)
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Limit to one queue")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum rows to show")

	return cmd
}

func runFailures(ctx context.Context, queueName string, limit int) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := client.RecentFailures(ctx, queueName, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No recorded failures")
		return nil
	}

	fmt.Printf("\n=== Recent Delivery Failures ===\n\n")
	for _, rec := range records {
		fmt.Printf("[%s] %s queue=%s handler=%s attempts=%d\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Action,
			rec.QueueName,
			rec.Handler,
			rec.Attempts,
		)
		if rec.Reason != "" {
			fmt.Printf("  reason: %s\n", rec.Reason)
		}
	}
	fmt.Println()

	return nil
}

// newCleanupCmd creates the cleanup command
func newCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Clean up old delivery-journal rows",
		Long:  `Removes delivery-journal rows older than the specified number of days from the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd.Context(), days)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "Delete rows older than this many days")

	return cmd
}

func runCleanup(ctx context.Context, days int) error {
	logger.Info().Int("older_than_days", days).Msg("Cleaning up delivery journal")

	client, err := newClient(true)
	if err != nil {
		return err
	}
	defer client.Close()

	deleted, err := client.CleanupJournal(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Deleted %d journal rows older than %d days\n", deleted, days)
	return nil
}
