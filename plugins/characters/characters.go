// Package characters keeps the community's character sheets.
package characters

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

func (p *Plugin) Name() string { return "characters" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	if deps.Store == nil {
		return errors.New("characters: store is required")
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

const (
	usageAdd    = "addcharacter <nome> <descrição> <servidor> [imagem]"
	usageDelete = "deletecharacter <nome>"
	usageGet    = "getcharacter <nome>"
	usageEdit   = "editcharacter <nome> <campo> <valor>"
)

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	return []router.Command{
		{Name: "addcharacter", Description: i18n.HelpAddCharacter, Usage: usageAdd, Timeout: timeout, Handle: p.handleAdd},
		{Name: "listcharacters", Description: i18n.HelpListCharacters, Usage: "listcharacters", Timeout: timeout, Handle: p.handleList},
		{Name: "deletecharacter", Description: i18n.HelpDeleteChar, Usage: usageDelete, Timeout: timeout, Handle: p.handleDelete},
		{Name: "getcharacter", Description: i18n.HelpGetCharacter, Usage: usageGet, Timeout: timeout, Handle: p.handleGet},
		{Name: "editcharacter", Description: i18n.HelpEditCharacter, Usage: usageEdit, Timeout: timeout, Handle: p.handleEdit},
	}
}

func Card(tr *i18n.Translator, c storage.Character, color int) transport.Card {
	return transport.Card{
		Title:       c.Name,
		Description: c.Description,
		Color:       color,
		Fields:      []transport.CardField{{Name: tr.T(i18n.LabelServer), Value: c.Server}},
		ImageURL:    c.Image,
	}
}

func (p *Plugin) handleAdd(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 3 {
		return req.Usage(ctx, usageAdd)
	}
	c := storage.Character{
		Name:        req.Arg(0),
		Description: req.Arg(1),
		Server:      req.Arg(2),
		Image:       req.Arg(3),
		CreatorID:   req.FromID,
	}
	if c.Image != "" && !pluginkit.ValidImageURL(c.Image) {
		return req.ReplyT(ctx, i18n.MsgInvalidImageURL)
	}
	octx, cancel := p.op(ctx)
	defer cancel()
	if _, err := p.Deps.Store.AddCharacter(octx, c); err != nil {
		return err
	}
	return req.ReplyT(ctx, i18n.MsgCharacterAdded)
}

func (p *Plugin) handleList(ctx context.Context, req *router.Request) error {
	octx, cancel := p.op(ctx)
	list, err := p.Deps.Store.ListCharacters(octx)
	cancel()
	if err != nil {
		return err
	}
	pages := make([]pager.Page, 0, len(list))
	for _, c := range list {
		pages = append(pages, Card(req.Tr, c, colorList))
	}
	return pluginkit.Browse(ctx, req, p.Deps.Pager, pages, pager.NavSideArrows, i18n.MsgNoCharacters)
}

func (p *Plugin) handleDelete(ctx context.Context, req *router.Request) error {
	name := req.Arg(0)
	if name == "" {
		return req.Usage(ctx, usageDelete)
	}
	octx, cancel := p.op(ctx)
	err := p.Deps.Store.DeleteCharacter(octx, name, req.FromID)
	cancel()
	p.Audit(ctx, storage.AuditEntry{ActorID: req.FromID, ChatID: req.Chat.ChatID, ServerID: req.ServerID,
		Action: "deletecharacter", Target: name, OK: err == nil, Error: pluginkit.ErrString(err)})
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgCharacterDenied, i18n.MsgCharacterDenied)
	}
	return req.ReplyT(ctx, i18n.MsgCharacterDeleted)
}

func (p *Plugin) handleGet(ctx context.Context, req *router.Request) error {
	name := req.Arg(0)
	if name == "" {
		return req.Usage(ctx, usageGet)
	}
	octx, cancel := p.op(ctx)
	c, err := p.Deps.Store.GetCharacter(octx, name)
	cancel()
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgCharacterNotFound, i18n.MsgCharacterNotFound)
	}
	return req.ReplyCard(ctx, Card(req.Tr, c, colorDetail))
}

func (p *Plugin) handleEdit(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 3 {
		return req.Usage(ctx, usageEdit)
	}
	name, value := req.Arg(0), req.Rest(2)
	field, err := storage.ParseCharacterField(req.Arg(1))
	if err != nil {
		return req.ReplyT(ctx, i18n.MsgCharacterBadField)
	}
	if field == storage.CharacterImage && !pluginkit.ValidImageURL(value) {
		return req.ReplyT(ctx, i18n.MsgInvalidImageURL)
	}
	octx, cancel := p.op(ctx)
	err = p.Deps.Store.UpdateCharacter(octx, name, req.FromID, field, value)
	cancel()
	if err != nil {
		return pluginkit.ReplyStoreErr(ctx, req, err, i18n.MsgCharacterDenied, i18n.MsgCharacterDenied)
	}
	return req.ReplyT(ctx, i18n.MsgCharacterUpdated)
}
