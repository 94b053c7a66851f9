// Package rolls implements per-server roll tables and ad-hoc choices.
package rolls

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"

	"lassbot/internal/i18n"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit"
	"lassbot/internal/storage"
	"lassbot/internal/transport/router"
)

type Config struct {
	pluginkit.Common
}

type Plugin struct {
	plugin.Base
	cfg pluginkit.Holder[Config]

	intn func(n int) int
}

func New() *Plugin { return &Plugin{intn: rand.IntN} }

func (p *Plugin) Name() string { return "rolls" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	if deps.Store == nil {
		return errors.New("rolls: store is required")
	}
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

func (p *Plugin) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return p.cfg.Load().Timeouts.WithOperation(ctx, pluginkit.DefaultOperationTimeout)
}

const (
	usageCreate = "rollcreate <nome> <opções>"
	usageDelete = "rolldelete <nome>"
	usageRoll   = "roll <nome>"
	usageChoose = "choose <opção1, opção2, ...>"
)

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	return []router.Command{
		{Name: "rollcreate", Description: i18n.HelpRollCreate, Usage: usageCreate, Access: router.AccessAdmin, ServerOnly: true, Timeout: timeout, Handle: p.handleCreate},
		{Name: "rolldelete", Description: i18n.HelpRollDelete, Usage: usageDelete, Access: router.AccessAdmin, ServerOnly: true, Timeout: timeout, Handle: p.handleDelete},
		{Name: "roll", Description: i18n.HelpRoll, Usage: usageRoll, ServerOnly: true, Timeout: timeout, Handle: p.handleRoll},
		{Name: "rolls", Description: i18n.HelpRolls, Usage: "rolls", ServerOnly: true, Timeout: timeout, Handle: p.handleList},
		{Name: "choose", Description: i18n.HelpChoose, Usage: usageChoose, Timeout: timeout, Handle: p.handleChoose},
	}
}

func (p *Plugin) handleCreate(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 2 {
		return req.Usage(ctx, usageCreate)
	}
	r := storage.Roll{ServerID: req.ServerID, Name: req.Arg(0), Options: req.Rest(1), CreatorID: req.FromID}
	octx, cancel := p.op(ctx)
	err := p.Deps.Store.CreateRoll(octx, r)
	cancel()
	p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
		Action: "rollcreate", Target: strings.ToLower(r.Name), OK: err == nil, Error: pluginkit.ErrString(err)})
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgRollTaken, i18n.MsgRollTaken)
	}
	return req.ReplyT(ctx, i18n.MsgRollCreated)
}

func (p *Plugin) handleDelete(ctx context.Context, req *router.Request) error {
	name := req.Arg(0)
	if name == "" {
		return req.Usage(ctx, usageDelete)
	}
	octx, cancel := p.op(ctx)
	err := p.Deps.Store.DeleteRoll(octx, req.ServerID, name, req.FromID)
	cancel()
	p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
		Action: "rolldelete", Target: strings.ToLower(name), OK: err == nil, Error: pluginkit.ErrString(err)})
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgRollNotFound, i18n.MsgRollDenied)
	}
	return req.ReplyT(ctx, i18n.MsgRollDeleted)
}

func (p *Plugin) handleRoll(ctx context.Context, req *router.Request) error {
	name := req.Arg(0)
	if name == "" {
		return req.Usage(ctx, usageRoll)
	}
	octx, cancel := p.op(ctx)
	r, err := p.Deps.Store.GetRoll(octx, req.ServerID, name)
	cancel()
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgRollNotFound, i18n.MsgRollNotFound)
	}
	choices := r.Choices()
	if len(choices) == 0 {
		return req.ReplyT(ctx, i18n.MsgRollNotFound)
	}
	return req.Reply(ctx, req.Adapter.Escape(choices[p.intn(len(choices))]))
}

func (p *Plugin) handleList(ctx context.Context, req *router.Request) error {
	octx, cancel := p.op(ctx)
	list, err := p.Deps.Store.ListRolls(octx, req.ServerID)
	cancel()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return req.ReplyT(ctx, i18n.MsgNoRolls)
	}
	var b strings.Builder
	b.WriteString(req.Adapter.Bold(req.T(i18n.MsgRollList)))
	for _, r := range list {
		b.WriteString("\n- ")
		b.WriteString(req.Adapter.Bold(r.Name))
		b.WriteString(": ")
		b.WriteString(req.Adapter.Escape(strings.Join(r.Choices(), ", ")))
	}
	return req.Reply(ctx, b.String())
}

// SplitOptions splits a comma-separated list, dropping blank entries.
func SplitOptions(s string) []string {
	return storage.Roll{Options: s}.Choices()
}

func (p *Plugin) handleChoose(ctx context.Context, req *router.Request) error {
	opts := SplitOptions(req.RawArgs)
	if len(opts) == 0 {
		return req.ReplyT(ctx, i18n.MsgNoOptions)
	}
	return req.Reply(ctx, req.Adapter.Escape(opts[p.intn(len(opts))]))
}
