// Package telegram is the telebot-backed transport.Adapter.
package telegram

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "lassbot/internal/runtime/supervisor"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
	"lassbot/pkg/tgui"
)

// telegramTextLimit stays under the Bot API's 4096-character message cap.
const telegramTextLimit = 4000

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	tgui.Format

	cfg Config
	log logx.Logger

	bot     *tele.Bot
	out     atomic.Value // chan<- transport.Update
	runMu   sync.Mutex
	running bool

	// sup owns the poll loop, the drop reporter and the stop watcher.
	sup *rtsup.Supervisor

	droppedUpdates uint64

	menuMu   sync.Mutex
	menuHash uint64
}

var (
	_ transport.Adapter            = (*Adapter)(nil)
	_ transport.PermissionChecker  = (*Adapter)(nil)
	_ transport.Moderator          = (*Adapter)(nil)
	_ transport.CommandMenuUpdater = (*Adapter)(nil)
)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, _ tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) Platform() string { return transport.PlatformTelegram }

// Supervisor returns the adapter's internal supervisor (nil if not started).
func (a *Adapter) Supervisor() *rtsup.Supervisor {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.sup
}

func (a *Adapter) registerHandlers() {
	// Handlers forward to the current output channel. Start() may swap it.
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		if msg := toMessage(c.Message()); msg != nil {
			a.sendUpdate(transport.Update{Kind: transport.UpdateMessage, Message: msg})
		}
		return nil
	})

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		m := c.Message()
		if cb == nil || m == nil || cb.Sender == nil {
			return nil
		}
		a.sendUpdate(transport.Update{
			Kind: transport.UpdateCallback,
			Callback: &transport.Callback{
				ID:        cb.ID,
				ChatID:    m.Chat.ID,
				ThreadID:  m.ThreadID,
				FromID:    cb.Sender.ID,
				MessageID: int64(m.ID),
				Data:      strings.TrimPrefix(cb.Data, "\f"),
			},
		})
		return nil
	})
}

// toMessage maps a telebot message. Anonymous senders (channel posts) are
// dropped.
func toMessage(m *tele.Message) *transport.Message {
	if m == nil || m.Sender == nil || m.Chat == nil {
		return nil
	}
	msg := &transport.Message{
		ID:           int64(m.ID),
		ChatID:       m.Chat.ID,
		ServerID:     m.Chat.ID,
		ThreadID:     m.ThreadID,
		FromID:       m.Sender.ID,
		FromUsername: m.Sender.Username,
		FromName:     strings.TrimSpace(m.Sender.FirstName + " " + m.Sender.LastName),
		Text:         m.Text,
		IsGroup:      m.Chat.Type != tele.ChatPrivate,
	}
	if m.ReplyTo != nil && m.ReplyTo.Sender != nil {
		msg.ReplyToFromID = m.ReplyTo.Sender.ID
	}
	return msg
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

func (a *Adapter) reportDrops(capacity int) {
	if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
		a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", capacity))
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))),
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("updates.drop_report", func(c context.Context) {
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

	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	// Start blocks until Stop; restart it if it returns while still live.
	sup.GoRestart0("telebot.poll", func(c context.Context) {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithPublishFirstError(true),
		rtsup.WithStopOnCleanExit(false),
	)
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.Uint64("dropped_updates_pending", atomic.LoadUint64(&a.droppedUpdates)))
	sup.Cancel()
	go a.bot.Stop()

	// Keep shutdown snappy even if getUpdates is still long-polling.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			a.log.Warn("telegram stop timed out", logx.Err(err))
			return nil
		}
		a.log.Debug("telegram stopped with supervisor error", logx.Err(err))
	}
	return nil
}

func parseMode(opt *transport.SendOptions) string {
	if opt.ParseMode != "" {
		return opt.ParseMode
	}
	return tele.ModeHTML
}

func (a *Adapter) sendOptions(to transport.ChatTarget, opt *transport.SendOptions) *tele.SendOptions {
	so := &tele.SendOptions{
		ParseMode:             parseMode(opt),
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}
	if opt.ReplyToID != 0 {
		so.ReplyTo = &tele.Message{ID: int(opt.ReplyToID), Chat: &tele.Chat{ID: to.ChatID}}
		so.AllowWithoutReply = true
	}
	return so
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	markup, err := tgui.NavMarkup(opt.Nav)
	if err != nil {
		return transport.MessageRef{}, err
	}
	chunks := transport.SplitText(text, telegramTextLimit, strings.EqualFold(parseMode(opt), tele.ModeHTML))
	chat := &tele.Chat{ID: to.ChatID}

	var first transport.MessageRef
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		so := a.sendOptions(to, opt)
		// Navigation sits on the last chunk so it stays under the content.
		if i == len(chunks)-1 && markup != nil {
			so.ReplyMarkup = markup
		}
		if i > 0 {
			so.ReplyTo = nil
		}
		msg, err := a.bot.Send(chat, chunk, so)
		if err != nil {
			return first, err
		}
		if i == 0 || markup != nil {
			first = transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: int64(msg.ID)}
		}
	}
	return first, nil
}

func editable(ref transport.MessageRef) *tele.Message {
	return &tele.Message{ID: int(ref.MessageID), Chat: &tele.Chat{ID: ref.ChatID}}
}

func (a *Adapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	markup, err := tgui.NavMarkup(opt.Nav)
	if err != nil {
		return err
	}
	chunks := transport.SplitText(text, telegramTextLimit, strings.EqualFold(parseMode(opt), tele.ModeHTML))
	so := &tele.SendOptions{ParseMode: parseMode(opt), DisableWebPagePreview: opt.DisablePreview}
	if markup != nil {
		so.ReplyMarkup = markup
	} else {
		so.ReplyMarkup = &tele.ReplyMarkup{}
	}
	if _, err := a.bot.Edit(editable(ref), chunks[0], so); err != nil && !errors.Is(err, tele.ErrSameMessageContent) {
		return err
	}
	// Overflow past the edited message is sent as new messages.
	for _, chunk := range chunks[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		to := ref.Target()
		more := &tele.SendOptions{ParseMode: parseMode(opt), DisableWebPagePreview: opt.DisablePreview, ThreadID: to.ThreadID}
		if _, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, chunk, more); err != nil {
			return err
		}
	}
	return nil
}

// SendCard renders the card as HTML. Image cards keep the link preview on
// so the picture shows.
func (a *Adapter) SendCard(ctx context.Context, to transport.ChatTarget, card transport.Card, opt *transport.SendOptions) (transport.MessageRef, error) {
	return a.SendText(ctx, to, tgui.RenderCard(card).String(), cardOptions(card, opt))
}

func (a *Adapter) EditCard(ctx context.Context, ref transport.MessageRef, card transport.Card, opt *transport.SendOptions) error {
	return a.EditText(ctx, ref, tgui.RenderCard(card).String(), cardOptions(card, opt))
}

func cardOptions(card transport.Card, opt *transport.SendOptions) *transport.SendOptions {
	o := transport.SendOptions{}
	if opt != nil {
		o = *opt
	}
	o.ParseMode = tele.ModeHTML
	o.DisablePreview = card.ImageURL == ""
	return &o
}

func (a *Adapter) ClearNav(ctx context.Context, ref transport.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.EditReplyMarkup(editable(ref), nil)
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

func (a *Adapter) AnswerCallback(ctx context.Context, cb transport.Callback, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: cb.ID}, &tele.CallbackResponse{Text: text})
}

// Permissions maps the member's chat role. Private chats grant nothing.
func (a *Adapter) Permissions(ctx context.Context, chatID, userID int64) (transport.Perms, error) {
	if err := ctx.Err(); err != nil {
		return transport.Perms{}, err
	}
	if chatID == userID {
		return transport.Perms{}, nil
	}
	m, err := a.bot.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		return transport.Perms{}, err
	}
	switch m.Role {
	case tele.Creator:
		return transport.Perms{Admin: true, Ban: true, Kick: true}, nil
	case tele.Administrator:
		return transport.Perms{Admin: true, Ban: m.CanRestrictMembers, Kick: m.CanRestrictMembers}, nil
	}
	return transport.Perms{}, nil
}

// Ban removes the user from the chat for good. Telegram has no ban reason;
// it is only logged.
func (a *Adapter) Ban(ctx context.Context, serverID, userID int64, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.bot.Ban(&tele.Chat{ID: serverID}, &tele.ChatMember{User: &tele.User{ID: userID}})
	if err == nil {
		a.log.Info("member banned", logx.Int64("chat_id", serverID), logx.Int64("user_id", userID), logx.String("reason", reason))
	}
	return err
}

// Kick bans then immediately unbans so the user may rejoin.
func (a *Adapter) Kick(ctx context.Context, serverID, userID int64, reason string) error {
	if err := a.Ban(ctx, serverID, userID, reason); err != nil {
		return err
	}
	return a.bot.Unban(&tele.Chat{ID: serverID}, &tele.User{ID: userID}, true)
}

// UpdateMenuCommands replaces the global command menu. It only calls
// Telegram when the list changed since the last successful update.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []transport.BotCommand) error {
	a.menuMu.Lock()
	defer a.menuMu.Unlock()

	sum := menuHash(cmds)
	if sum == a.menuHash {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	list := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		d := c.Description
		if d == "" {
			d = c.Command
		}
		list = append(list, tele.Command{Text: c.Command, Description: d})
	}
	if err := a.bot.SetCommands(list); err != nil {
		return err
	}
	a.menuHash = sum
	a.log.Info("menu commands updated", logx.Int("count", len(list)))
	return nil
}

func menuHash(cmds []transport.BotCommand) uint64 {
	h := fnv.New64a()
	for _, c := range cmds {
		h.Write([]byte(c.Command))
		h.Write([]byte{0})
		h.Write([]byte(c.Description))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
