// Package discord is the discordgo-backed transport.Adapter. Navigation
// affordances are reactions; a reaction from a user becomes a Callback.
package discord

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	rtsup "lassbot/internal/runtime/supervisor"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
)

type Config struct {
	Token string
}

const (
	textLimit  = 2000
	maxNavMsgs = 1024
)

type Adapter struct {
	transport.Markdown

	cfg Config
	log logx.Logger

	s       *discordgo.Session
	out     atomic.Value // chan<- transport.Update
	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor
	unhook  []func()

	droppedUpdates uint64

	navMu    sync.Mutex
	nav      map[int64][]transport.NavButton
	navOrder []int64
}

var (
	_ transport.Adapter           = (*Adapter)(nil)
	_ transport.PermissionChecker = (*Adapter)(nil)
	_ transport.Moderator         = (*Adapter)(nil)
	_ transport.ProfileResolver   = (*Adapter)(nil)
	_ transport.PresenceSetter    = (*Adapter)(nil)
)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	tok := strings.TrimSpace(cfg.Token)
	if tok == "" {
		return nil, errors.New("discord token is empty")
	}
	if !strings.HasPrefix(tok, "Bot ") {
		tok = "Bot " + tok
	}
	s, err := discordgo.New(tok)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentsMessageContent
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, s: s, nav: map[int64][]transport.NavButton{}}
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	return a, nil
}

func (a *Adapter) Platform() string { return transport.PlatformDiscord }

func (a *Adapter) botID() string {
	if a.s.State != nil && a.s.State.User != nil {
		return a.s.State.User.ID
	}
	return ""
}

func (a *Adapter) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if msg := toMessage(m.Message, a.botID()); msg != nil {
		a.sendUpdate(transport.Update{Kind: transport.UpdateMessage, Message: msg})
	}
}

func (a *Adapter) onReaction(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil || r.UserID == a.botID() {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	cb, ok := a.toCallback(r.MessageReaction)
	if !ok {
		return
	}
	a.sendUpdate(transport.Update{Kind: transport.UpdateCallback, Callback: &cb})
}

// toMessage maps a discordgo message. Bot authors, including ourselves, are
// dropped.
func toMessage(m *discordgo.Message, self string) *transport.Message {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == self {
		return nil
	}
	msg := &transport.Message{
		ID:           snowflake(m.ID),
		ChatID:       snowflake(m.ChannelID),
		ServerID:     snowflake(m.GuildID),
		FromID:       snowflake(m.Author.ID),
		FromUsername: m.Author.Username,
		FromName:     m.Author.GlobalName,
		Text:         m.Content,
		IsGroup:      m.GuildID != "",
	}
	if msg.FromName == "" {
		msg.FromName = m.Author.Username
	}
	if m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		msg.ReplyToFromID = snowflake(m.ReferencedMessage.Author.ID)
	}
	for _, at := range m.Attachments {
		if at == nil || at.URL == "" {
			continue
		}
		msg.Attachments = append(msg.Attachments, transport.Attachment{Filename: at.Filename, URL: at.URL})
	}
	return msg
}

func (a *Adapter) toCallback(r *discordgo.MessageReaction) (transport.Callback, bool) {
	mid := snowflake(r.MessageID)
	a.navMu.Lock()
	nav := a.nav[mid]
	a.navMu.Unlock()
	for _, b := range nav {
		if b.Label == r.Emoji.Name {
			return transport.Callback{
				ID:        r.Emoji.APIName(),
				FromID:    snowflake(r.UserID),
				ChatID:    snowflake(r.ChannelID),
				MessageID: mid,
				Data:      b.Data,
			}, true
		}
	}
	return transport.Callback{}, false
}

func (a *Adapter) sendUpdate(up transport.Update) {
	out, _ := a.out.Load().(chan<- transport.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.out.Store(out)
	a.unhook = []func(){
		a.s.AddHandler(a.onMessage),
		a.s.AddHandler(a.onReaction),
	}
	if err := a.s.Open(); err != nil {
		for _, f := range a.unhook {
			f()
		}
		a.unhook = nil
		var nilOut chan<- transport.Update
		a.out.Store(nilOut)
		return err
	}
	a.running = true
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "discord.adapter"))),
		rtsup.WithCancelOnError(false),
	)
	a.sup.Go0("updates.drop_report", func(c context.Context) {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.Done():
				a.reportDrops(cap(out))
				return
			case <-ticker.C:
				a.reportDrops(cap(out))
			}
		}
	})
	a.log.Info("gateway connected", logx.String("bot_id", a.botID()))
	return nil
}

func (a *Adapter) reportDrops(capacity int) {
	if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
		a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", capacity))
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	for _, f := range a.unhook {
		f()
	}
	a.unhook = nil
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
		a.sup = nil
	}
	a.log.Info("stopping")
	return a.s.Close()
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chunks := transport.SplitText(text, textLimit, false)
	var ref transport.MessageRef
	for i, chunk := range chunks {
		ms := &discordgo.MessageSend{Content: chunk, AllowedMentions: allowedMentions()}
		if i == 0 && opt.ReplyToID != 0 {
			ms.Reference = &discordgo.MessageReference{MessageID: id(opt.ReplyToID), ChannelID: id(to.ChatID)}
		}
		m, err := a.s.ChannelMessageSendComplex(id(to.ChatID), ms, discordgo.WithContext(ctx))
		if err != nil {
			return ref, err
		}
		if i == 0 || len(opt.Nav) > 0 {
			ref = transport.MessageRef{ChatID: to.ChatID, MessageID: snowflake(m.ID)}
		}
	}
	return ref, a.setNav(ctx, ref, opt.Nav)
}

func (a *Adapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chunks := transport.SplitText(text, textLimit, false)
	me := discordgo.NewMessageEdit(id(ref.ChatID), id(ref.MessageID)).SetContent(chunks[0])
	if _, err := a.s.ChannelMessageEditComplex(me, discordgo.WithContext(ctx)); err != nil {
		return err
	}
	for _, chunk := range chunks[1:] {
		ms := &discordgo.MessageSend{Content: chunk, AllowedMentions: allowedMentions()}
		if _, err := a.s.ChannelMessageSendComplex(id(ref.ChatID), ms, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return a.setNav(ctx, ref, opt.Nav)
}

func (a *Adapter) SendCard(ctx context.Context, to transport.ChatTarget, card transport.Card, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	ms := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{toEmbed(card)}, AllowedMentions: allowedMentions()}
	if opt.ReplyToID != 0 {
		ms.Reference = &discordgo.MessageReference{MessageID: id(opt.ReplyToID), ChannelID: id(to.ChatID)}
	}
	m, err := a.s.ChannelMessageSendComplex(id(to.ChatID), ms, discordgo.WithContext(ctx))
	if err != nil {
		return transport.MessageRef{}, err
	}
	ref := transport.MessageRef{ChatID: to.ChatID, MessageID: snowflake(m.ID)}
	return ref, a.setNav(ctx, ref, opt.Nav)
}

func (a *Adapter) EditCard(ctx context.Context, ref transport.MessageRef, card transport.Card, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	me := discordgo.NewMessageEdit(id(ref.ChatID), id(ref.MessageID)).
		SetEmbeds([]*discordgo.MessageEmbed{toEmbed(card)})
	if _, err := a.s.ChannelMessageEditComplex(me, discordgo.WithContext(ctx)); err != nil {
		return err
	}
	return a.setNav(ctx, ref, opt.Nav)
}

// setNav records the message's affordances and adds any reaction not yet
// present, in order.
func (a *Adapter) setNav(ctx context.Context, ref transport.MessageRef, nav []transport.NavButton) error {
	if len(nav) == 0 || ref.MessageID == 0 {
		return nil
	}
	a.navMu.Lock()
	prev, known := a.nav[ref.MessageID]
	a.nav[ref.MessageID] = append([]transport.NavButton(nil), nav...)
	if !known {
		a.navOrder = append(a.navOrder, ref.MessageID)
		for len(a.navOrder) > maxNavMsgs {
			delete(a.nav, a.navOrder[0])
			a.navOrder = a.navOrder[1:]
		}
	}
	a.navMu.Unlock()

	have := make(map[string]bool, len(prev))
	for _, b := range prev {
		have[b.Label] = true
	}
	for _, b := range nav {
		if have[b.Label] {
			continue
		}
		if err := a.s.MessageReactionAdd(id(ref.ChatID), id(ref.MessageID), b.Label, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) ClearNav(ctx context.Context, ref transport.MessageRef) error {
	a.navMu.Lock()
	delete(a.nav, ref.MessageID)
	for i, m := range a.navOrder {
		if m == ref.MessageID {
			a.navOrder = append(a.navOrder[:i], a.navOrder[i+1:]...)
			break
		}
	}
	a.navMu.Unlock()
	return a.s.MessageReactionsRemoveAll(id(ref.ChatID), id(ref.MessageID), discordgo.WithContext(ctx))
}

// AnswerCallback removes the user's reaction so it can be pressed again.
// Discord has no toast, so text is ignored.
func (a *Adapter) AnswerCallback(ctx context.Context, cb transport.Callback, _ string) error {
	return a.s.MessageReactionRemove(id(cb.ChatID), id(cb.MessageID), cb.ID, id(cb.FromID), discordgo.WithContext(ctx))
}

func (a *Adapter) Permissions(ctx context.Context, chatID, userID int64) (transport.Perms, error) {
	p, err := a.s.UserChannelPermissions(id(userID), id(chatID), discordgo.WithContext(ctx))
	if err != nil {
		return transport.Perms{}, err
	}
	return permsFromBits(p), nil
}

func permsFromBits(p int64) transport.Perms {
	admin := p&discordgo.PermissionAdministrator != 0
	return transport.Perms{
		Admin: admin,
		Ban:   admin || p&discordgo.PermissionBanMembers != 0,
		Kick:  admin || p&discordgo.PermissionKickMembers != 0,
	}
}

func (a *Adapter) Ban(ctx context.Context, serverID, userID int64, reason string) error {
	return a.s.GuildBanCreateWithReason(id(serverID), id(userID), reason, 0, discordgo.WithContext(ctx))
}

func (a *Adapter) Kick(ctx context.Context, serverID, userID int64, reason string) error {
	return a.s.GuildMemberDeleteWithReason(id(serverID), id(userID), reason, discordgo.WithContext(ctx))
}

func (a *Adapter) AvatarURL(ctx context.Context, userID int64) (string, error) {
	u, err := a.s.User(id(userID), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return u.AvatarURL("1024"), nil
}

func (a *Adapter) SetPresence(_ context.Context, status string) error {
	return a.s.UpdateGameStatus(0, status)
}

func allowedMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}}
}

func snowflake(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func id(v int64) string { return strconv.FormatInt(v, 10) }
