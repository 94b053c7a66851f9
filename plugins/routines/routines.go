// Package routines exposes the daily announcement registry as chat
// commands.
package routines

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"lassbot/internal/i18n"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit"
	rt "lassbot/internal/routines"
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

func (p *Plugin) Name() string { return "routines" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	if deps.Routines == nil {
		return errors.New("routines: routine service is required")
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

// Health reports the number of registered routines.
func (p *Plugin) Health(ctx context.Context) (string, error) {
	st, err := p.Base.Health(ctx)
	if err != nil || st != "ok" {
		return st, err
	}
	return "ok routines=" + strconv.Itoa(len(p.Deps.Routines.List())), nil
}

const (
	usageSet    = "rotina <HH:MM[:SS]> <canal> <mensagem>"
	usageDelete = "deleterotina <HH:MM[:SS]> <canal>"
)

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	return []router.Command{
		{Name: "rotina", Description: i18n.HelpRotina, Usage: usageSet, Access: router.AccessAdmin, Timeout: timeout, Handle: p.handleSet},
		{Name: "listrotinas", Description: i18n.HelpListRotinas, Usage: "listrotinas", Timeout: timeout, Handle: p.handleList},
		{Name: "deleterotina", Description: i18n.HelpDeleteRotina, Usage: usageDelete, Access: router.AccessAdmin, Timeout: timeout, Handle: p.handleDelete},
	}
}

func (p *Plugin) handleSet(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 3 {
		return req.Usage(ctx, usageSet)
	}
	at := req.Arg(0)
	if rt.ValidateTimeOfDay(at) != nil {
		return req.ReplyT(ctx, i18n.MsgRoutineBadTime)
	}
	dest, ok := transport.ParseChannelRef(req.Arg(1))
	if !ok {
		return req.ReplyT(ctx, i18n.MsgRoutineBadChannel)
	}

	octx, cancel := p.cfg.Load().Timeouts.WithOperation(ctx, pluginkit.DefaultOperationTimeout)
	r, err := p.Deps.Routines.Register(octx, at, dest, req.Rest(2))
	cancel()
	p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
		Action: "rotina", Target: rt.Key{TimeOfDay: at, Destination: dest}.TriggerName(), OK: err == nil, Error: pluginkit.ErrString(err)})
	switch {
	case errors.Is(err, rt.ErrInvalidTimeOfDay):
		return req.ReplyT(ctx, i18n.MsgRoutineBadTime)
	case err != nil && !errors.Is(err, rt.ErrNotPersisted):
		return err
	}

	if rerr := req.ReplyT(ctx, i18n.MsgRoutineSet, req.Adapter.Code(r.TimeOfDay), req.Adapter.ChannelMention(dest)); rerr != nil {
		return rerr
	}
	if rerr := req.Reply(ctx, req.Adapter.Escape(r.Message)); rerr != nil {
		return rerr
	}
	if err != nil {
		p.Log.Warn("routine kept in memory only", logx.String("time", at), logx.Int64("dest", dest), logx.Err(err))
		return req.ReplyT(ctx, i18n.MsgRoutineSavedMemory, req.Adapter.Escape(err.Error()))
	}
	return nil
}

func (p *Plugin) handleDelete(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 2 {
		return req.Usage(ctx, usageDelete)
	}
	at := req.Arg(0)
	if rt.ValidateTimeOfDay(at) != nil {
		return req.ReplyT(ctx, i18n.MsgRoutineBadTime)
	}
	dest, ok := transport.ParseChannelRef(req.Arg(1))
	if !ok {
		return req.ReplyT(ctx, i18n.MsgRoutineBadChannel)
	}

	octx, cancel := p.cfg.Load().Timeouts.WithOperation(ctx, pluginkit.DefaultOperationTimeout)
	found, err := p.Deps.Routines.Unregister(octx, at, dest)
	cancel()
	mention := req.Adapter.ChannelMention(dest)
	if !found {
		return req.ReplyT(ctx, i18n.MsgRoutineNotFound, at, mention)
	}
	p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
		Action: "deleterotina", Target: rt.Key{TimeOfDay: at, Destination: dest}.TriggerName(), OK: err == nil, Error: pluginkit.ErrString(err)})
	if rerr := req.ReplyT(ctx, i18n.MsgRoutineRemoved, at, mention); rerr != nil {
		return rerr
	}
	if err != nil {
		return req.ReplyT(ctx, i18n.MsgRoutineSavedMemory, req.Adapter.Escape(err.Error()))
	}
	return nil
}

func (p *Plugin) handleList(ctx context.Context, req *router.Request) error {
	list := p.Deps.Routines.List()
	if len(list) == 0 {
		return req.ReplyT(ctx, i18n.MsgNoRoutines)
	}
	f := req.Adapter
	var b strings.Builder
	b.WriteString(f.Bold(req.T(i18n.MsgRoutineListHeader)))
	for _, r := range list {
		b.WriteString("\n- ")
		b.WriteString(f.Bold(req.T(i18n.LabelRoutineTime)))
		b.WriteString(" " + r.TimeOfDay + " | ")
		b.WriteString(f.Bold(req.T(i18n.LabelRoutineChannel)))
		b.WriteString(" " + f.ChannelMention(r.Destination) + " | ")
		b.WriteString(f.Bold(req.T(i18n.LabelRoutineMessage)))
		b.WriteString(" " + f.Escape(r.Message))
	}
	return req.Reply(ctx, b.String())
}
