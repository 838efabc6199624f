package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/spf13/cobra"

	"github.com/appetiteclub/tableside/cmd/utils/internal/commands"
	"github.com/appetiteclub/tableside/pkg/event"
)

const (
	appNamespace = "UTILS"
	appName      = "tableside-utils"
	appVersion   = "0.1.0"
)

func main() {
	// Flags are parsed by cobra; the config only carries file and env values.
	config, err := apt.LoadConfig(appNamespace, nil)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logger := apt.NewLogger(config.GetStringOrDef("log.level", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           appName,
		Short:         "Maintenance commands for the tableside service",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		resetDBCommand(config, logger),
		replayBillsCommand(config, logger),
		watchCommand(config, logger),
		boardCommand(config),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func resetDBCommand(config *apt.Config, logger apt.Logger) *cobra.Command {
	opts := commands.ResetOptions{}
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop the service database (USE WITH CAUTION)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.ResetDB(cmd.Context(), opts, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.URL, "mongo-url", config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017"), "MongoDB connection string")
	f.StringVar(&opts.Database, "database", config.GetStringOrDef("db.mongo.name", "tableside"), "Database to drop")
	f.BoolVar(&opts.Confirm, "yes", false, "Confirm the drop")
	return cmd
}

func replayBillsCommand(config *apt.Config, logger apt.Logger) *cobra.Command {
	opts := commands.ReplayOptions{}
	cmd := &cobra.Command{
		Use:   "replay-bills",
		Short: "Print bills closed since the last replay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.ReplayBills(cmd.Context(), cmd.OutOrStdout(), opts, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.NATSURL, "nats-url", config.GetStringOrDef("nats.url", "nats://localhost:4222"), "NATS server URL")
	f.StringVar(&opts.Stream, "stream", config.GetStringOrDef("nats.stream.name", "BILLS"), "JetStream stream holding bills")
	f.StringVar(&opts.Consumer, "consumer", "bills-replay-cli", "Durable consumer name")
	f.IntVar(&opts.Limit, "limit", 500, "Maximum bills to read")
	return cmd
}

func watchCommand(config *apt.Config, logger apt.Logger) *cobra.Command {
	var natsURL string
	var topics []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print domain events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Watch(cmd.Context(), cmd.OutOrStdout(), natsURL, topics, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&natsURL, "nats-url", config.GetStringOrDef("nats.url", "nats://localhost:4222"), "NATS server URL")
	f.StringSliceVar(&topics, "topic", event.Topics, "Topics to watch (may be repeated)")
	return cmd
}

func boardCommand(config *apt.Config) *cobra.Command {
	opts := commands.BoardOptions{}
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the kitchen board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Board(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Addr, "addr", config.GetStringOrDef("grpc.addr", "localhost:9090"), "Kitchen board gRPC address")
	f.StringVar(&opts.Stage, "stage", "", "Stages to show: new, cooking, ready or all")
	f.StringVar(&opts.Table, "table", "", "Only this table")
	return cmd
}
