package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"adwatch/internal/config"
	"adwatch/internal/extractor"
	"adwatch/internal/fetcher"
	"adwatch/internal/notifier"
	"adwatch/internal/scheduler"
	"adwatch/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	for _, path := range []string{cfg.LedgerPath, cfg.ErrorLogPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
	}

	errFile, err := os.OpenFile(cfg.ErrorLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		log.Error("open error log", "path", cfg.ErrorLogPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = errFile.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.LedgerPath)
	if err != nil {
		log.Error("open ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ledger, err := storage.LoadLedger(ctx, store, log)
	if err != nil {
		log.Error("load ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}
	log.Info("loaded ledger", "path", cfg.LedgerPath, "entries", len(ledger))

	sender, err := newSender(cfg)
	if err != nil {
		log.Error("create sender", "channel", cfg.Channel, "error", err)
		os.Exit(1)
	}

	f := fetcher.New(http.DefaultClient, cfg.ListingURL, cfg.AdBaseURL,
		fetcher.WithTimeout(cfg.HTTPTimeout),
		fetcher.WithDetailInterval(cfg.DetailFetchInterval),
	)
	n := notifier.New(sender, cfg.AdBaseURL, cfg.SubjectSuffix)

	sched := scheduler.New(f, extractor.New(log), n, store, ledger, scheduler.Options{
		BaseInterval:   cfg.BaseInterval,
		MaxInterval:    cfg.MaxInterval,
		QuietUntilHour: cfg.QuietUntilHour,
		QuietInterval:  cfg.QuietInterval,
		Retention:      cfg.LedgerRetention,
	}, log)
	sched.SetErrorLog(slog.New(slog.NewJSONHandler(errFile, &slog.HandlerOptions{Level: slog.LevelError})))

	log.Info("starting poller", "listing_url", cfg.ListingURL, "channel", cfg.Channel)

	sched.Run(ctx)

	log.Info("poller stopped")
}

func newSender(cfg *config.Config) (notifier.Sender, error) {
	if cfg.Channel == config.ChannelTelegram {
		return notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.HTTPTimeout)
	}
	return notifier.NewEmail(notifier.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.From,
		To:       cfg.To,
		Timeout:  cfg.HTTPTimeout,
	})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
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
