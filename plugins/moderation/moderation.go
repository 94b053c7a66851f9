// Package moderation provides ban and kick, gated on the invoker's platform
// permissions and recorded in the audit trail.
package moderation

import (
	"context"
	"encoding/json"

	"lassbot/internal/i18n"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit"
	"lassbot/internal/storage"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

type Config struct {
	pluginkit.Common
}

type Plugin struct {
	plugin.Base
	cfg pluginkit.Holder[Config]
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "moderation" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }

func (p *Plugin) decode(raw json.RawMessage) (Config, error) {
	c, err := plugin.DecodeConfig[Config](raw)
	if err != nil {
		return c, err
	}
	return c, c.Timeouts.Validate(p.Name() + ".timeouts")
}

func (p *Plugin) ValidateConfig(ctx context.Context, raw json.RawMessage) error {
	_, err := p.decode(raw)
	return err
}

func (p *Plugin) OnConfigChange(ctx context.Context, raw json.RawMessage) error {
	c, err := p.decode(raw)
	if err != nil {
		return err
	}
	p.cfg.Store(c)
	return nil
}

type action struct {
	name    string
	done    string
	failed  string
	perform func(m transport.Moderator, ctx context.Context, serverID, userID int64, reason string) error
}

var (
	ban = action{
		name: "ban", done: i18n.MsgUserBanned, failed: i18n.MsgBanFailed,
		perform: transport.Moderator.Ban,
	}
	kick = action{
		name: "kick", done: i18n.MsgUserKicked, failed: i18n.MsgKickFailed,
		perform: transport.Moderator.Kick,
	}
)

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	return []router.Command{
		{Name: "ban", Description: i18n.HelpBan, Usage: "ban <usuário> [motivo]", Requires: router.PermBan, ServerOnly: true, Timeout: timeout, Handle: p.handler(ban)},
		{Name: "kick", Description: i18n.HelpKick, Usage: "kick <usuário> [motivo]", Requires: router.PermKick, ServerOnly: true, Timeout: timeout, Handle: p.handler(kick)},
	}
}

func (p *Plugin) handler(a action) router.HandlerFunc {
	return func(ctx context.Context, req *router.Request) error {
		if req.Arg(0) == "" {
			return req.Usage(ctx, a.name+" <usuário> [motivo]")
		}
		target, ok := transport.ParseUserRef(req.Arg(0))
		if !ok {
			return req.ReplyT(ctx, i18n.MsgInvalidUser)
		}
		mod, ok := req.Adapter.(transport.Moderator)
		if !ok {
			return req.ReplyT(ctx, i18n.MsgUnsupported)
		}
		reason := req.Rest(1)
		if reason == "" {
			reason = req.T(i18n.MsgNoReason)
		}

		octx, cancel := p.cfg.Load().Timeouts.WithOperation(ctx, pluginkit.DefaultOperationTimeout)
		err := a.perform(mod, octx, req.ServerID, target, reason)
		cancel()
		p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
			Action: a.name, Target: req.Arg(0), OK: err == nil, Error: pluginkit.ErrString(err)})

		who := req.Adapter.UserMention(target)
		if err != nil {
			p.Log.Warn(a.name+" failed", logx.Int64("server", req.ServerID), logx.Int64("target", target), logx.Err(err))
			return req.ReplyT(ctx, a.failed, who, req.Adapter.Escape(err.Error()))
		}
		p.Log.Info(a.name+" applied", logx.Int64("server", req.ServerID), logx.Int64("target", target), logx.Int64("by", req.FromID))
		return req.ReplyT(ctx, a.done, who, req.Adapter.Escape(reason))
	}
}
