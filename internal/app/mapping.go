package app

import (
	"context"
	"fmt"
	"strings"

	"lassbot/internal/config"
	"lassbot/internal/metrics"
	"lassbot/internal/storage"
	"lassbot/internal/task/scheduler"
	"lassbot/internal/transport"
	"lassbot/internal/transport/discord"
	"lassbot/internal/transport/telegram"
	"lassbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Chat.Enabled,
			ChatID:     cfg.Logging.Chat.ChatID,
			ThreadID:   cfg.Logging.Chat.ThreadID,
			MinLevel:   cfg.Logging.Chat.MinLevel,
			RatePerSec: cfg.Logging.Chat.RatePerSec,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Scheduler.IsEnabled(),
		Timezone: strings.TrimSpace(cfg.Scheduler.Timezone),
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	sc := storage.Config{
		Driver:      cfg.Storage.DriverOrDefault(),
		DSN:         cfg.Storage.ResolveDSN(),
		BusyTimeout: busy,
	}
	if sc.DSN == "" {
		return storage.Config{}, fmt.Errorf("storage: %s needs dsn or dsn_env", sc.Driver)
	}
	return sc, nil
}

func mapMetricsConfig(cfg *config.Config) (metrics.Config, error) {
	m := cfg.Metrics
	read, err := config.ParseDurationField("metrics.read_timeout", m.ReadTimeout)
	if err != nil {
		return metrics.Config{}, err
	}
	write, err := config.ParseDurationField("metrics.write_timeout", m.WriteTimeout)
	if err != nil {
		return metrics.Config{}, err
	}
	idle, err := config.ParseDurationField("metrics.idle_timeout", m.IdleTimeout)
	if err != nil {
		return metrics.Config{}, err
	}
	addr := strings.TrimSpace(m.Addr)
	if addr == "" {
		addr = config.DefaultMetricsAddr
	}
	path := strings.TrimSpace(m.Path)
	if path == "" {
		path = config.DefaultMetricsPath
	}
	return metrics.Config{
		Enabled:       m.Enabled,
		Addr:          addr,
		Path:          path,
		Token:         strings.TrimSpace(m.Token),
		AllowInsecure: m.AllowInsecure,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}, nil
}

// newAdapter builds the adapter of the configured platform.
func newAdapter(cfg *config.Config, log logx.Logger) (transport.Adapter, error) {
	token, err := config.ResolveToken(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.PlatformName() {
	case config.PlatformTelegram:
		poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, config.DefaultPollTimeout)
		if err != nil {
			return nil, err
		}
		return telegram.New(telegram.Config{Token: token, PollTimeout: poll}, log.With(logx.String("comp", "telegram")))
	case config.PlatformDiscord:
		return discord.New(discord.Config{Token: token}, log.With(logx.String("comp", "discord")))
	default:
		return nil, fmt.Errorf("platform: unknown %q", cfg.Platform)
	}
}

// presenceText is the activity line shown under the bot name.
func presenceText(cfg *config.Config, prefix string) string {
	if s := strings.TrimSpace(cfg.Discord.Status); s != "" {
		return s
	}
	return prefix + "help Mommy Lass"
}

// chatLog mirrors log lines into a chat through the adapter.
type chatLog struct{ ad transport.Adapter }

func (c chatLog) SendLog(ctx context.Context, chatID int64, threadID int, text string) error {
	_, err := c.ad.SendText(ctx, transport.ChatTarget{ChatID: chatID, ThreadID: threadID}, c.ad.Escape(text), &transport.SendOptions{DisablePreview: true})
	return err
}

// routineSender delivers routine messages as plain text.
func routineSender(ad transport.Adapter) func(ctx context.Context, destination int64, text string) error {
	return func(ctx context.Context, destination int64, text string) error {
		_, err := ad.SendText(ctx, transport.ChatTarget{ChatID: destination}, ad.Escape(text), nil)
		return err
	}
}
