package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Kusina in the terminal, without starting a server",
	RunE:  runChat,
}

func runChat(_ *cobra.Command, _ []string) error {
	// Warnings only: the terminal belongs to the conversation.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := initShared(ctx, cfg, logger)
	defer sc.Cleanup()
	if err != nil {
		return err
	}

	return cli.NewGateway(sc.Chat, os.Stdin, os.Stdout, logger).Start(ctx)
}
