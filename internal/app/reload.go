package app

import (
	"context"
	"strings"
	"time"

	"lassbot/internal/config"
	"lassbot/internal/eventbus"
	"lassbot/pkg/logx"
)

// reloadLoop applies published configs until ctx ends. Bursts are coalesced
// so only the newest config is applied.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config, applied *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			if next == nil {
				continue
			}
			a.applyConfig(ctx, applied, next)
			applied = next
		}
	}
}

// applyConfig pushes the hot-reloadable sections of next into the running
// components. Sections that need a restart are only logged.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	ch := config.Diff(prev, next)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		eventbus.Emit(a.bus, eventbus.ConfigReloaded, ch)
		return
	}
	a.log.Debug("config change summary", append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Fields...)...)
	if len(ch.RestartOnly) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.String("sections", strings.Join(ch.RestartOnly, ",")))
	}

	if ch.Has("logging") {
		a.logs.Apply(mapLogConfig(next))
	}

	if ch.Has("bot") {
		applyBot(a.cmdm, prev.Bot, next.Bot)
	}

	if ch.Has("presence") || (ch.Has("bot") && prev.Bot.PrefixOrDefault() != next.Bot.PrefixOrDefault()) {
		a.setPresence(ctx, next)
	}

	if ch.Has("scheduler") {
		a.sched.Apply(mapSchedulerConfig(next))
	}

	if ch.Has("pager") {
		a.pager.SetIdleTimeout(config.DurationOr(next.Pager.IdleTimeout, config.DefaultPagerIdle))
	}

	if ch.Has("metrics") {
		if mc, err := mapMetricsConfig(next); err != nil {
			a.log.Warn("invalid metrics config; keeping previous", logx.Err(err))
		} else {
			a.ops.Reconfigure(ctx, mc)
		}
	}

	if ch.Has("plugins") {
		a.pm.Apply(ctx, next)
	}

	eventbus.Emit(a.bus, eventbus.ConfigReloaded, ch)
	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Fields...)...)
}

// botSettings is the part of the command manager a reload touches.
type botSettings interface {
	SetOwners(owners []int64)
	SetPrefix(p string)
	SetLocale(locale string)
	SetRateLimit(perMinute int)
	SetCommandTimeout(d time.Duration)
}

// applyBot updates the router from the bot section. The prefix is only
// overwritten when the file's value changed, so a prefix set at runtime with
// editprefix survives unrelated reloads.
func applyBot(m botSettings, prev, next config.BotConfig) {
	m.SetOwners(next.OwnerUserIDs)
	if prev.PrefixOrDefault() != next.PrefixOrDefault() {
		m.SetPrefix(next.PrefixOrDefault())
	}
	m.SetLocale(next.LocaleOrDefault())
	m.SetRateLimit(next.RatePerUser)
	m.SetCommandTimeout(config.DurationOr(next.CommandTimeout, config.DefaultCommandTimeout))
}
