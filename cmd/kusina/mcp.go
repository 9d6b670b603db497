package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Kusina as MCP tools over stdio",
	Long: `Run an MCP server on stdin/stdout so MCP clients can ask Kusina
questions, start conversations and read their history. Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(_ *cobra.Command, _ []string) error {
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

	logger.Info("mcp server starting on stdio")
	return mcpserver.NewGateway(sc.Chat, version, os.Stdin, os.Stdout, logger).Start(ctx)
}
