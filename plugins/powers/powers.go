// Package powers manages the community's power cards: create, browse,
// inspect, edit and delete, with edits and deletes limited to the creator.
package powers

import (
	"context"
	"encoding/json"
	"errors"

	"lassbot/internal/i18n"
	"lassbot/internal/pager"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit"
	"lassbot/internal/storage"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
)

const (
	colorList   = 0x3498db
	colorDetail = 0x2ecc71
)

type Config struct {
	pluginkit.Common
}

type Plugin struct {
	plugin.Base
	cfg pluginkit.Holder[Config]
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "powers" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	if deps.Store == nil {
		return errors.New("powers: store is required")
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

func (p *Plugin) Callbacks() []router.CallbackRoute { return pluginkit.NavRoutes(p.Deps.Pager) }

func (p *Plugin) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return p.cfg.Load().Timeouts.WithOperation(ctx, pluginkit.DefaultOperationTimeout)
}

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	cmd := func(c router.Command) router.Command {
		c.Timeout = timeout
		return c
	}
	return []router.Command{
		cmd(router.Command{
			Name:        "addpower",
			Description: i18n.HelpAddPower,
			Usage:       "addpower <nome> <descrição> <vantagem> <desvantagem> [imagem]",
			Access:      router.AccessAdmin,
			Handle:      p.handleAdd,
		}),
		cmd(router.Command{
			Name:        "listpowers",
			Description: i18n.HelpListPowers,
			Usage:       "listpowers",
			Handle:      p.handleList,
		}),
		cmd(router.Command{
			Name:        "deletepower",
			Description: i18n.HelpDeletePower,
			Usage:       "deletepower <nome>",
			Handle:      p.handleDelete,
		}),
		cmd(router.Command{
			Name:        "getpower",
			Description: i18n.HelpGetPower,
			Usage:       "getpower <nome>",
			Handle:      p.handleGet,
		}),
		cmd(router.Command{
			Name:        "editpower",
			Description: i18n.HelpEditPower,
			Usage:       "editpower <nome> <campo> <valor>",
			Handle:      p.handleEdit,
		}),
		cmd(router.Command{
			Name:        "prandom",
			Description: i18n.HelpPRandom,
			Usage:       "prandom",
			Handle:      p.handleRandom,
		}),
	}
}

// Card renders a power the same way in lists and detail views.
func Card(tr *i18n.Translator, pw storage.Power, color int) transport.Card {
	return transport.Card{
		Title:       pw.Name,
		Description: pw.Description,
		Color:       color,
		Fields: []transport.CardField{
			{Name: tr.T(i18n.LabelAdvantage), Value: pw.Advantage},
			{Name: tr.T(i18n.LabelDisadvantage), Value: pw.Disadvantage},
		},
		ImageURL: pw.Image,
	}
}

func (p *Plugin) handleAdd(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 4 {
		return req.Usage(ctx, "addpower <nome> <descrição> <vantagem> <desvantagem> [imagem]")
	}
	pw := storage.Power{
		Name:         req.Arg(0),
		Description:  req.Arg(1),
		Advantage:    req.Arg(2),
		Disadvantage: req.Arg(3),
		Image:        req.Arg(4),
		CreatorID:    req.FromID,
	}
	octx, cancel := p.op(ctx)
	defer cancel()
	if _, err := p.Deps.Store.AddPower(octx, pw); err != nil {
		return err
	}
	return req.ReplyT(ctx, i18n.MsgPowerAdded, req.Adapter.Escape(pw.Name))
}

func (p *Plugin) handleList(ctx context.Context, req *router.Request) error {
	octx, cancel := p.op(ctx)
	list, err := p.Deps.Store.ListPowers(octx)
	cancel()
	if err != nil {
		return err
	}
	pages := make([]pager.Page, 0, len(list))
	for _, pw := range list {
		pages = append(pages, Card(req.Tr, pw, colorList))
	}
	return pluginkit.Browse(ctx, req, p.Deps.Pager, pages, pager.NavArrows, i18n.MsgNoPowers)
}

func (p *Plugin) handleDelete(ctx context.Context, req *router.Request) error {
	name := req.Arg(0)
	if name == "" {
		return req.Usage(ctx, "deletepower <nome>")
	}
	shown := req.Adapter.Escape(name)
	octx, cancel := p.op(ctx)
	err := p.Deps.Store.DeletePower(octx, name, req.FromID)
	cancel()
	p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
		Action: "deletepower", Target: name, OK: err == nil, Error: pluginkit.ErrString(err)})
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgPowerDeleteDenied, i18n.MsgPowerDeleteDenied, shown)
	}
	return req.ReplyT(ctx, i18n.MsgPowerDeleted, shown)
}

func (p *Plugin) handleGet(ctx context.Context, req *router.Request) error {
	name := req.Arg(0)
	if name == "" {
		return req.Usage(ctx, "getpower <nome>")
	}
	octx, cancel := p.op(ctx)
	pw, err := p.Deps.Store.GetPower(octx, name)
	cancel()
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgPowerNotFound, i18n.MsgPowerNotFound, req.Adapter.Escape(name))
	}
	return req.ReplyCard(ctx, Card(req.Tr, pw, colorDetail))
}

func (p *Plugin) handleEdit(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 3 {
		return req.Usage(ctx, "editpower <nome> <campo> <valor>")
	}
	name, value := req.Arg(0), req.Rest(2)
	field, err := storage.ParsePowerField(req.Arg(1))
	if err != nil {
		return req.ReplyT(ctx, i18n.MsgPowerInvalidField)
	}
	octx, cancel := p.op(ctx)
	err = p.Deps.Store.UpdatePower(octx, name, req.FromID, field, value)
	cancel()
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgPowerEditDenied, i18n.MsgPowerEditDenied, req.Adapter.Escape(name))
	}
	return req.ReplyT(ctx, i18n.MsgPowerFieldUpdated, req.T(fieldLabel[field]), req.Adapter.Escape(name))
}

var fieldLabel = map[storage.PowerField]string{
	storage.PowerDescription:  i18n.LabelDescription,
	storage.PowerAdvantage:    i18n.LabelAdvantage,
	storage.PowerDisadvantage: i18n.LabelDisadvantage,
	storage.PowerImage:        i18n.LabelImage,
}

func (p *Plugin) handleRandom(ctx context.Context, req *router.Request) error {
	octx, cancel := p.op(ctx)
	pw, err := p.Deps.Store.RandomPower(octx)
	cancel()
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgNoPowers, i18n.MsgNoPowers)
	}
	return req.ReplyCard(ctx, Card(req.Tr, pw, colorList))
}
