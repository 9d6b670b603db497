package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/cli"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/httpapi"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/ws"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/ratelimit"
)

const shutdownGrace = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configured gateways (HTTP API, websocket, CLI)",
	RunE:  runServe,
}

func init() {
	// Registered on both so `kusina --port :9090` and `kusina serve --port :9090` work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&servePort, "port", "", "override HTTP listen address (e.g. :8080)")
	}
}

// runServe starts Kusina with every enabled gateway and blocks until a
// signal arrives or a gateway fails.
func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		if cfg.Gateways.HTTP == nil {
			cfg.Gateways.HTTP = &config.HTTPGatewayConfig{Enabled: true}
		}
		cfg.Gateways.HTTP.ListenAddr = servePort
	}

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := initShared(ctx, cfg, logger)
	defer sc.Cleanup()
	if err != nil {
		return err
	}

	// Transcript archiver (optional).
	var archiver *archive.Archiver
	if cfg.Archive != nil && cfg.Archive.Enabled {
		archiver, err = archive.New(sc.Orchestrator.Conversations(), sc.Store.Transcripts(), cfg.Archive.ScheduleSpec(), logger)
		if err != nil {
			return err
		}
		if m := sc.Obs.MetricsOrNil(); m != nil {
			archiver.WithMetrics(archive.NewMetrics(m.Registry))
		}
		stopArchiver := archiver.Start(ctx)
		defer stopArchiver()
	}

	gws := buildGateways(cfg, sc)
	if len(gws) == 0 {
		return fmt.Errorf("no gateways enabled")
	}

	errCh := make(chan error, len(gws))
	for _, gw := range gws {
		go func(g gateway.Gateway) {
			errCh <- g.Start(ctx)
		}(gw)
	}

	// Run until a signal, the first failure, or every gateway has exited
	// (e.g. exit typed in a CLI-only setup).
	for running := len(gws); running > 0 && err == nil; {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			running = 0
		case err = <-errCh:
			running--
			if err != nil {
				logger.Error("gateway failed", slog.String("error", err.Error()))
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	for i := len(gws) - 1; i >= 0; i-- {
		if stopErr := gws[i].Stop(shutdownCtx); stopErr != nil {
			logger.Error("gateway stop failed", slog.String("error", stopErr.Error()))
		}
	}

	// Final snapshot so nothing said since the last tick is lost.
	if archiver != nil {
		if n, archiveErr := archiver.RunOnce(shutdownCtx); archiveErr != nil {
			logger.Error("final transcript archive failed", slog.String("error", archiveErr.Error()))
		} else {
			logger.Info("final transcript archive", slog.Int("saved", n))
		}
	}

	return err
}

// buildGateways creates all enabled gateways from config. The websocket is
// mounted on the HTTP gateway; both share one rate limiter.
func buildGateways(cfg *config.Config, sc *SharedComponents) []gateway.Gateway {
	var gws []gateway.Gateway
	gwCfg := cfg.Gateways
	logger := sc.Logger

	// Default to CLI if no gateways section configured.
	if gwCfg.CLI == nil && gwCfg.HTTP == nil && gwCfg.WebSocket == nil {
		gws = append(gws, cli.NewGateway(sc.Chat, os.Stdin, os.Stdout, logger))
		logger.Debug("gateway enabled", slog.String("type", "cli"), slog.String("reason", "default"))
		return gws
	}

	if gwCfg.CLI != nil && gwCfg.CLI.Enabled {
		gws = append(gws, cli.NewGateway(sc.Chat, os.Stdin, os.Stdout, logger))
		logger.Debug("gateway enabled", slog.String("type", "cli"))
	}

	if gwCfg.HTTP == nil || !gwCfg.HTTP.Enabled {
		return gws
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: gwCfg.HTTP.RateLimit.RequestsPerMinute,
		BurstSize:         gwCfg.HTTP.RateLimit.BurstSize,
	})

	httpCfg := httpapi.Config{
		ListenAddr:     gwCfg.HTTP.Addr(),
		EnableDocs:     gwCfg.HTTP.EnableDocs,
		APIKeys:        gwCfg.HTTP.APIKeyUserMapping,
		MaxRequestSize: gwCfg.HTTP.MaxRequestSizeBytes,
		Observability:  sc.Obs,
	}
	if cfg.Observability != nil {
		httpCfg.MetricsPath = cfg.Observability.Metrics.MetricsPath()
	}
	httpGW := httpapi.NewGateway(httpCfg, sc.Chat, sc.Store.Recipes(), limiter, logger)
	if gwCfg.HTTP.EnableDocs {
		httpGW.WithOpenAPIDocs()
	}

	if gwCfg.WebSocket != nil && gwCfg.WebSocket.Enabled {
		wsServer := ws.NewServer(sc.Chat, gwCfg.WebSocket, gwCfg.HTTP.APIKeyUserMapping, limiter, logger)
		httpGW.WithHandler(wsServer.Path(), wsServer.Handler())
		logger.Debug("chat websocket mounted on http gateway", slog.String("path", wsServer.Path()))
	}

	gws = append(gws, httpGW)
	logger.Debug("gateway enabled",
		slog.String("type", "http"),
		slog.String("addr", httpCfg.ListenAddr),
		slog.Bool("websocket", gwCfg.WebSocket != nil && gwCfg.WebSocket.Enabled),
	)
	return gws
}
