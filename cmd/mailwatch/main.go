package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tracyhatemice/mailwatch/internal/checkpoint"
	"github.com/tracyhatemice/mailwatch/internal/config"
	"github.com/tracyhatemice/mailwatch/internal/mailbox"
	"github.com/tracyhatemice/mailwatch/internal/notify"
	"github.com/tracyhatemice/mailwatch/internal/watch"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	dataDir := flag.String("data-dir", "data", "directory for persistent data (checkpoints)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("mailwatch starting", "accounts", len(cfg.Accounts))

	store, err := checkpoint.NewFileStore(*dataDir, logger)
	if err != nil {
		logger.Error("failed to open checkpoint store", "error", err)
		os.Exit(1)
	}

	transport := notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.AuthToken)
	poller := watch.NewPoller(store, transport, logger)
	dialers := map[string]mailbox.Dialer{
		"imap": mailbox.NewIMAPDialer(logger),
		"pop3": mailbox.NewPOP3Dialer(logger),
	}
	runner := watch.NewRunner(poller, dialers, cfg.Accounts, cfg.Interval(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Force exit on second signal.
	go func() {
		<-ctx.Done()
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Warn("forced shutdown")
		os.Exit(1)
	}()

	runner.Run(ctx)
	logger.Info("mailwatch stopped")
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
