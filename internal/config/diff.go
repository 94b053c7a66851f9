package config

import (
	"reflect"
	"sort"
	"strings"

	"lassbot/pkg/logx"
)

// Change summarizes a reload for logging. Fields never carry secrets: tokens
// and DSNs are reported only as "set" flags.
type Change struct {
	Sections []string
	Fields   []logx.Field
	Plugins  []string
	// RestartOnly lists changed sections that only take effect after a restart.
	RestartOnly []string
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

func (c Change) Has(section string) bool {
	for _, s := range c.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Diff compares two configs section by section.
func Diff(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	mark := func(section string, restart bool, fields ...logx.Field) {
		ch.Sections = append(ch.Sections, section)
		ch.Fields = append(ch.Fields, fields...)
		if restart {
			ch.RestartOnly = append(ch.RestartOnly, section)
		}
	}

	if oldCfg.PlatformName() != newCfg.PlatformName() ||
		!sameSecret(oldCfg.Discord.Token, newCfg.Discord.Token) ||
		!sameSecret(oldCfg.Telegram.Token, newCfg.Telegram.Token) ||
		oldCfg.Discord.TokenEnv != newCfg.Discord.TokenEnv ||
		oldCfg.Telegram.TokenEnv != newCfg.Telegram.TokenEnv ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		mark("platform", true, logx.String("platform", newCfg.PlatformName()))
	}
	if oldCfg.Discord.Status != newCfg.Discord.Status {
		mark("presence", false, logx.String("discord.status", newCfg.Discord.Status))
	}
	if !reflect.DeepEqual(oldCfg.Bot, newCfg.Bot) {
		mark("bot", false,
			logx.String("bot.prefix", newCfg.Bot.PrefixOrDefault()),
			logx.String("bot.locale", newCfg.Bot.LocaleOrDefault()),
			logx.Int("bot.owner_count", len(newCfg.Bot.OwnerUserIDs)),
			logx.Int("bot.rate_per_user", newCfg.Bot.RatePerUser),
		)
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		mark("logging", false,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.chat", newCfg.Logging.Chat.Enabled),
		)
	}
	if oldCfg.Scheduler.IsEnabled() != newCfg.Scheduler.IsEnabled() ||
		strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
		mark("scheduler", false,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.IsEnabled()),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}
	// Installed triggers capture the delivery timeout, so both fields need a restart.
	if oldCfg.Routines.PathOrDefault() != newCfg.Routines.PathOrDefault() ||
		oldCfg.Routines.DeliveryTimeout != newCfg.Routines.DeliveryTimeout {
		mark("routines", true,
			logx.String("routines.path", newCfg.Routines.PathOrDefault()),
			logx.String("routines.delivery_timeout", newCfg.Routines.DeliveryTimeout),
		)
	}
	if oldCfg.Storage.DriverOrDefault() != newCfg.Storage.DriverOrDefault() ||
		oldCfg.Storage.Path != newCfg.Storage.Path ||
		oldCfg.Storage.DSNEnv != newCfg.Storage.DSNEnv ||
		oldCfg.Storage.BusyTimeout != newCfg.Storage.BusyTimeout ||
		!sameSecret(oldCfg.Storage.DSN, newCfg.Storage.DSN) {
		mark("storage", true,
			logx.String("storage.driver", newCfg.Storage.DriverOrDefault()),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}
	if oldCfg.Pager != newCfg.Pager {
		mark("pager", false, logx.String("pager.idle_timeout", newCfg.Pager.IdleTimeout))
	}
	om, nm := oldCfg.Metrics, newCfg.Metrics
	tokenChanged := !sameSecret(om.Token, nm.Token)
	om.Token, nm.Token = "", ""
	if om != nm || tokenChanged {
		mark("metrics", false,
			logx.Bool("metrics.enabled", nm.Enabled),
			logx.String("metrics.addr", nm.Addr),
			logx.Bool("metrics.token_set", strings.TrimSpace(newCfg.Metrics.Token) != ""),
		)
	}
	if p := diffPlugins(oldCfg.Plugins, newCfg.Plugins); len(p) > 0 {
		ch.Plugins = p
		mark("plugins", false, logx.Int("plugins.changed", len(p)))
	}

	sort.Strings(ch.Sections)
	return ch
}

func sameSecret(a, b string) bool { return strings.TrimSpace(a) == strings.TrimSpace(b) }

func diffPlugins(oldM, newM map[string]PluginConfigRaw) []string {
	names := map[string]struct{}{}
	for k := range oldM {
		names[k] = struct{}{}
	}
	for k := range newM {
		names[k] = struct{}{}
	}
	var out []string
	for name := range names {
		o, n := oldM[name], newM[name]
		if o.IsEnabled() != n.IsEnabled() || hashRaw(o.Config) != hashRaw(n.Config) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
