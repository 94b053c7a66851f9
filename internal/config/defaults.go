package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultPrefix          = "$"
	DefaultLocale          = "pt-BR"
	DefaultRoutinesPath    = "rotinas.json"
	DefaultStoragePath     = "./lassbot.db"
	DefaultMetricsAddr     = "127.0.0.1:9090"
	DefaultMetricsPath     = "/metrics"
	DefaultCommandTimeout  = 30 * time.Second
	DefaultDeliveryTimeout = 15 * time.Second
	DefaultPagerIdle       = 60 * time.Second
	DefaultPollTimeout     = 10 * time.Second
)

var ErrMissingToken = errors.New("missing platform token")

// PlatformName returns the normalized platform, defaulting to discord.
func (c *Config) PlatformName() string {
	p := strings.ToLower(strings.TrimSpace(c.Platform))
	if p == "" {
		return PlatformDiscord
	}
	return p
}

func (b BotConfig) PrefixOrDefault() string {
	if p := strings.TrimSpace(b.Prefix); p != "" {
		return p
	}
	return DefaultPrefix
}

func (b BotConfig) LocaleOrDefault() string {
	if l := strings.TrimSpace(b.Locale); l != "" {
		return l
	}
	return DefaultLocale
}

func (r RoutinesConfig) PathOrDefault() string {
	if p := strings.TrimSpace(r.Path); p != "" {
		return p
	}
	return DefaultRoutinesPath
}

func (s StorageConfig) DriverOrDefault() string {
	if d := strings.ToLower(strings.TrimSpace(s.Driver)); d != "" {
		return d
	}
	return "sqlite"
}

// ResolveDSN picks the DSN (postgres) or the file path (sqlite).
// The environment variable named by dsn_env wins over dsn.
func (s StorageConfig) ResolveDSN() string {
	if env := strings.TrimSpace(s.DSNEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	if d := strings.TrimSpace(s.DSN); d != "" {
		return d
	}
	if s.DriverOrDefault() == "sqlite" {
		if p := strings.TrimSpace(s.Path); p != "" {
			return p
		}
		return DefaultStoragePath
	}
	return ""
}

// ResolveToken returns the token of the selected platform. The environment
// wins over the file so secrets can stay out of the config.
func ResolveToken(c *Config) (string, error) {
	var env, fallback string
	switch c.PlatformName() {
	case PlatformTelegram:
		env, fallback = c.Telegram.TokenEnv, c.Telegram.Token
		if strings.TrimSpace(env) == "" {
			env = "TELEGRAM_TOKEN"
		}
	default:
		env, fallback = c.Discord.TokenEnv, c.Discord.Token
		if strings.TrimSpace(env) == "" {
			env = "DISCORD_TOKEN"
		}
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(fallback); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: set %s", ErrMissingToken, env)
}

// Validate checks everything that can be checked without side effects.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	switch c.PlatformName() {
	case PlatformDiscord, PlatformTelegram:
	default:
		errs = append(errs, fmt.Errorf("platform: unknown %q", c.Platform))
	}
	if strings.ContainsAny(c.Bot.PrefixOrDefault(), " \t\n") {
		errs = append(errs, errors.New("bot.prefix: must not contain whitespace"))
	}
	switch c.Storage.DriverOrDefault() {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver))
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	durations := map[string]string{
		"telegram.poll_timeout":     c.Telegram.PollTimeout,
		"bot.command_timeout":       c.Bot.CommandTimeout,
		"routines.delivery_timeout": c.Routines.DeliveryTimeout,
		"storage.busy_timeout":      c.Storage.BusyTimeout,
		"pager.idle_timeout":        c.Pager.IdleTimeout,
		"metrics.read_timeout":      c.Metrics.ReadTimeout,
		"metrics.write_timeout":     c.Metrics.WriteTimeout,
		"metrics.idle_timeout":      c.Metrics.IdleTimeout,
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Bot.RatePerUser < 0 {
		errs = append(errs, errors.New("bot.rate_per_user: must be >= 0"))
	}
	return errors.Join(errs...)
}
