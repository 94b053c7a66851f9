// Package kittest provides an in-memory adapter and request builder for
// plugin tests.
package kittest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"lassbot/internal/i18n"
	"lassbot/internal/storage"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

// Sent is one outgoing message.
type Sent struct {
	To   transport.ChatTarget
	Text string
	Card *transport.Card
	Opt  transport.SendOptions
}

// Moderation is one Ban or Kick call.
type Moderation struct {
	Action   string
	ServerID int64
	UserID   int64
	Reason   string
}

// Adapter records everything sent through it. The zero value is not usable;
// call NewAdapter. Formatter defaults to Discord markdown.
type Adapter struct {
	transport.Formatter

	mu      sync.Mutex
	nextID  int64
	sent    []Sent
	edits   []Sent
	cleared []transport.MessageRef
	answers []transport.Callback
	mods    []Moderation

	Perms   map[int64]transport.Perms
	Avatars map[int64]string
	// ModErr fails every Ban and Kick when set.
	ModErr error
}

var (
	_ transport.Adapter           = (*Adapter)(nil)
	_ transport.PermissionChecker = (*Adapter)(nil)
	_ transport.Moderator         = (*Adapter)(nil)
	_ transport.ProfileResolver   = (*Adapter)(nil)
)

func NewAdapter() *Adapter {
	return &Adapter{Formatter: transport.Markdown{}, Perms: map[int64]transport.Perms{}, Avatars: map[int64]string{}}
}

func (a *Adapter) Platform() string { return transport.PlatformDiscord }

func (a *Adapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *Adapter) Stop(context.Context) error                          { return nil }

func (a *Adapter) record(to transport.ChatTarget, text string, card *transport.Card, opt *transport.SendOptions) transport.MessageRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Sent{To: to, Text: text, Card: card}
	if opt != nil {
		s.Opt = *opt
	}
	a.sent = append(a.sent, s)
	a.nextID++
	return transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: a.nextID}
}

func (a *Adapter) SendText(_ context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	return a.record(to, text, nil, opt), nil
}

func (a *Adapter) SendCard(_ context.Context, to transport.ChatTarget, card transport.Card, opt *transport.SendOptions) (transport.MessageRef, error) {
	return a.record(to, "", &card, opt), nil
}

func (a *Adapter) EditText(_ context.Context, ref transport.MessageRef, text string, _ *transport.SendOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edits = append(a.edits, Sent{To: ref.Target(), Text: text})
	return nil
}

func (a *Adapter) EditCard(_ context.Context, ref transport.MessageRef, card transport.Card, _ *transport.SendOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edits = append(a.edits, Sent{To: ref.Target(), Card: &card})
	return nil
}

func (a *Adapter) ClearNav(_ context.Context, ref transport.MessageRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleared = append(a.cleared, ref)
	return nil
}

func (a *Adapter) AnswerCallback(_ context.Context, cb transport.Callback, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = append(a.answers, cb)
	return nil
}

func (a *Adapter) Permissions(_ context.Context, _, userID int64) (transport.Perms, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Perms[userID], nil
}

func (a *Adapter) Ban(_ context.Context, serverID, userID int64, reason string) error {
	return a.moderate("ban", serverID, userID, reason)
}

func (a *Adapter) Kick(_ context.Context, serverID, userID int64, reason string) error {
	return a.moderate("kick", serverID, userID, reason)
}

func (a *Adapter) moderate(action string, serverID, userID int64, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ModErr != nil {
		return a.ModErr
	}
	a.mods = append(a.mods, Moderation{Action: action, ServerID: serverID, UserID: userID, Reason: reason})
	return nil
}

func (a *Adapter) AvatarURL(_ context.Context, userID int64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.Avatars[userID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return u, nil
}

// Sent returns a copy of the sent messages.
func (a *Adapter) Sent() []Sent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Sent(nil), a.sent...)
}

// Last returns the text of the last sent message, or the card title.
func (a *Adapter) Last(t *testing.T) string {
	t.Helper()
	sent := a.Sent()
	if len(sent) == 0 {
		t.Fatalf("nothing was sent")
	}
	s := sent[len(sent)-1]
	if s.Card != nil {
		return s.Card.Title
	}
	return s.Text
}

func (a *Adapter) Edits() []Sent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Sent(nil), a.edits...)
}

func (a *Adapter) Cleared() []transport.MessageRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]transport.MessageRef(nil), a.cleared...)
}

func (a *Adapter) Answers() []transport.Callback {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]transport.Callback(nil), a.answers...)
}

func (a *Adapter) Moderations() []Moderation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Moderation(nil), a.mods...)
}

// Default ids used by Request.
const (
	ChatID   = int64(100)
	ServerID = int64(200)
	UserID   = int64(300)
)

// Request builds a command request from a raw argument string, tokenized
// the way the router does it.
func Request(ad transport.Adapter, command, rawArgs string) *router.Request {
	args := router.Tokenize(rawArgs)
	msg := &transport.Message{
		ID: 1, ChatID: ChatID, ServerID: ServerID, FromID: UserID,
		Text: "$" + command + " " + rawArgs, IsGroup: true,
	}
	return &router.Request{
		Update:   transport.Update{Kind: transport.UpdateMessage, Message: msg},
		Message:  msg,
		Chat:     transport.ChatTarget{ChatID: ChatID},
		ServerID: ServerID,
		FromID:   UserID,
		Command:  command,
		Args:     args,
		RawArgs:  strings.TrimSpace(rawArgs),
		Prefix:   "$",
		ReqID:    "test",
		Adapter:  ad,
		Logger:   logx.Nop(),
		Tr:       i18n.New("pt-BR"),
	}
}

// OpenStore opens a fresh SQLite store under t.TempDir.
func OpenStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
