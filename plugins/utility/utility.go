// Package utility has the small commands that touch the platform rather
// than the store: avatars, attachment links, the prefix and the status line.
package utility

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"lassbot/internal/i18n"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

// MaxPrefixLen bounds editprefix input in runes.
const MaxPrefixLen = 5

type Config struct {
	pluginkit.Common
}

type Plugin struct {
	plugin.Base
	cfg pluginkit.Holder[Config]
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "utility" }

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

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	return []router.Command{
		{Name: "editprefix", Description: i18n.HelpEditPrefix, Usage: "editprefix <novo_prefixo>", Access: router.AccessAdmin, Timeout: timeout, Handle: p.handlePrefix},
		{Name: "avatar", Description: i18n.HelpAvatar, Usage: "avatar [@usuário|ID]", Timeout: timeout, Handle: p.handleAvatar},
		{Name: "convertimage", Description: i18n.HelpConvertImage, Usage: "convertimage", Timeout: timeout, Handle: p.handleConvertImage},
		{Name: "status", Description: i18n.HelpStatus, Usage: "status", Timeout: timeout, Handle: p.handleStatus},
	}
}

// ValidPrefix rejects empty, overlong and whitespace-containing prefixes.
func ValidPrefix(s string) bool {
	if s == "" || len([]rune(s)) > MaxPrefixLen {
		return false
	}
	return strings.IndexFunc(s, unicode.IsSpace) < 0
}

func (p *Plugin) handlePrefix(ctx context.Context, req *router.Request) error {
	if p.Deps.Prefix == nil {
		return req.ReplyT(ctx, i18n.MsgUnsupported)
	}
	next := req.RawArgs
	if !ValidPrefix(next) {
		return req.ReplyT(ctx, i18n.MsgPrefixInvalid)
	}
	prev := p.Deps.Prefix.Prefix()
	p.Deps.Prefix.SetPrefix(next)
	p.Log.Info("prefix changed", logx.String("from", prev), logx.String("to", next), logx.Int64("by", req.FromID))
	return req.ReplyT(ctx, i18n.MsgPrefixUpdated, req.Adapter.Escape(next))
}

func (p *Plugin) handleAvatar(ctx context.Context, req *router.Request) error {
	pr, ok := req.Adapter.(transport.ProfileResolver)
	if !ok {
		return req.ReplyT(ctx, i18n.MsgUnsupported)
	}
	target := req.FromID
	if a := req.Arg(0); a != "" {
		id, ok := transport.ParseUserRef(a)
		if !ok {
			return req.ReplyT(ctx, i18n.MsgInvalidUser)
		}
		target = id
	}

	octx, cancel := p.cfg.Load().Timeouts.WithOperation(ctx, pluginkit.DefaultOperationTimeout)
	url, err := pr.AvatarURL(octx, target)
	cancel()
	switch {
	case err != nil:
		p.Log.Debug("avatar lookup failed", logx.Int64("user", target), logx.Err(err))
		return req.ReplyT(ctx, i18n.MsgInvalidUser)
	case url == "":
		return req.ReplyT(ctx, i18n.MsgAvatarMissing)
	}
	_, err = req.Adapter.SendText(ctx, req.Chat, url, nil)
	return err
}

func (p *Plugin) handleConvertImage(ctx context.Context, req *router.Request) error {
	var links []string
	if req.Message != nil {
		for _, a := range req.Message.Attachments {
			if a.URL != "" {
				links = append(links, req.Adapter.Code(a.URL))
			}
		}
	}
	if len(links) == 0 {
		return req.ReplyT(ctx, i18n.MsgNoAttachments)
	}
	return req.Reply(ctx, req.T(i18n.MsgAttachmentLinks)+"\n"+strings.Join(links, "\n"))
}

func (p *Plugin) handleStatus(ctx context.Context, req *router.Request) error {
	return req.ReplyT(ctx, i18n.MsgStatus)
}
