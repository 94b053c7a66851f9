package config

import (
	"bytes"
	"encoding/json"
)

// Platform names accepted in "platform".
const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

type Config struct {
	// Platform selects the chat adapter: "discord" (default) or "telegram".
	Platform string         `json:"platform"`
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`

	Bot       BotConfig       `json:"bot"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Routines  RoutinesConfig  `json:"routines"`
	Storage   StorageConfig   `json:"storage"`
	Pager     PagerConfig     `json:"pager"`
	Metrics   MetricsConfig   `json:"metrics"`

	Plugins map[string]PluginConfigRaw `json:"plugins"`
}

// DiscordConfig holds the gateway settings. The token is normally taken from
// the environment variable named by TokenEnv (default DISCORD_TOKEN); Token is
// a fallback for local runs.
type DiscordConfig struct {
	Token    string `json:"token,omitempty"`
	TokenEnv string `json:"token_env,omitempty"`
	// Status is the "playing" activity shown under the bot name.
	Status string `json:"status,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	TokenEnv string `json:"token_env,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type BotConfig struct {
	// Prefix starts every text command. Default "$".
	Prefix string `json:"prefix,omitempty"`
	// Locale of the replies: "pt-BR" (default) or "en".
	Locale string `json:"locale,omitempty"`
	// OwnerUserIDs bypass every permission check.
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	// Workers of the command dispatcher. 0 means max(2, NumCPU).
	Workers int `json:"workers,omitempty"`
	// RatePerUser is the number of commands per minute a single user may run.
	// 0 disables the limit.
	RatePerUser int `json:"rate_per_user,omitempty"`
	// CommandTimeout bounds one handler run (default "30s").
	CommandTimeout string `json:"command_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChat mirrors warnings and errors into a chat.
type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// SchedulerConfig controls the cron service that fires routines.
// Enabled is a pointer so an omitted section still schedules.
type SchedulerConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

func (s SchedulerConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

type RoutinesConfig struct {
	// Path of the routine document. ".yaml"/".yml" selects YAML, anything else JSON.
	Path string `json:"path,omitempty"`
	// DeliveryTimeout bounds one routine send (default "15s").
	DeliveryTimeout string `json:"delivery_timeout,omitempty"`
}

// StorageConfig selects the relational backend.
//
//	"storage": { "driver": "sqlite", "path": "./lassbot.db" }
//	"storage": { "driver": "postgres", "dsn_env": "DATABASE_URL" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	DSNEnv      string `json:"dsn_env,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type PagerConfig struct {
	// IdleTimeout closes a browse session with no valid signal (default "60s").
	IdleTimeout string `json:"idle_timeout,omitempty"`
}

// MetricsConfig controls the ops HTTP endpoint (/metrics, /healthz).
//
// Bind to loopback, or set a token, or explicitly allow_insecure.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Path          string `json:"path,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// PluginConfigRaw is one entry of "plugins". An omitted entry, or one without
// "enabled", leaves the plugin on.
type PluginConfigRaw struct {
	Enabled *bool           `json:"enabled,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

func (p PluginConfigRaw) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

// UnmarshalJSON rejects unknown keys inside a plugin entry.
func (p *PluginConfigRaw) UnmarshalJSON(b []byte) error {
	type plain struct {
		Enabled *bool           `json:"enabled,omitempty"`
		Config  json.RawMessage `json:"config,omitempty"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var t plain
	if err := dec.Decode(&t); err != nil {
		return err
	}
	*p = PluginConfigRaw(t)
	return nil
}

// Plugin returns the entry for name (zero value when absent).
func (c *Config) Plugin(name string) PluginConfigRaw {
	if c == nil || c.Plugins == nil {
		return PluginConfigRaw{}
	}
	return c.Plugins[name]
}
