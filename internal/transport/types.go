package transport

import (
	"context"
	"errors"
)

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// ErrUnsupported is returned by helpers when the adapter lacks an optional
// capability.
var ErrUnsupported = errors.New("transport: not supported on this platform")

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID int64
	// ChatID is the channel (Discord) or chat (Telegram) the message arrived in.
	ChatID int64
	// ServerID is the guild on Discord and the chat itself on Telegram.
	ServerID     int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	FromName     string
	Text         string
	IsGroup      bool
	// ReplyToFromID is the author of the message being replied to, if any.
	ReplyToFromID int64
	Attachments   []Attachment
}

type Attachment struct {
	Filename string
	URL      string
}

// Callback is a navigation signal: an inline button press on Telegram or a
// reaction on Discord.
type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	ThreadID  int
	MessageID int64
	Data      string
}

func (c Callback) Ref() MessageRef {
	return MessageRef{ChatID: c.ChatID, ThreadID: c.ThreadID, MessageID: c.MessageID}
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int64
}

func (r MessageRef) Target() ChatTarget { return ChatTarget{ChatID: r.ChatID, ThreadID: r.ThreadID} }

// NavButton is one navigation affordance. Data is delivered back verbatim
// in Callback.Data.
type NavButton struct {
	Label string
	Data  string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Nav            []NavButton
	// ReplyToID replies to a message when the platform supports it.
	ReplyToID int64
}

// Card is a rich message: an embed on Discord, an HTML block on Telegram.
type Card struct {
	Title        string
	Description  string
	Fields       []CardField
	ImageURL     string
	ThumbnailURL string
	Color        int
	Footer       string
}

type CardField struct {
	Name   string
	Value  string
	Inline bool
}

// Formatter renders inline markup in the adapter's dialect. Bold and Code
// take plain text. Escape must be applied to user-provided text embedded in
// formatted replies.
type Formatter interface {
	Bold(s string) string
	Code(s string) string
	Escape(s string) string
	UserMention(id int64) string
	ChannelMention(id int64) string
}

type Adapter interface {
	Formatter

	Platform() string
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	SendCard(ctx context.Context, to ChatTarget, card Card, opt *SendOptions) (MessageRef, error)
	EditCard(ctx context.Context, ref MessageRef, card Card, opt *SendOptions) error
	// ClearNav removes every navigation affordance from ref.
	ClearNav(ctx context.Context, ref MessageRef) error
	// AnswerCallback acknowledges cb so the affordance can be used again.
	AnswerCallback(ctx context.Context, cb Callback, text string) error
}

// Perms are the invoker's effective rights in a chat.
type Perms struct {
	Admin bool
	Ban   bool
	Kick  bool
}

// PermissionChecker is implemented by adapters that can look up a member's
// role flags.
type PermissionChecker interface {
	Permissions(ctx context.Context, chatID, userID int64) (Perms, error)
}

type Moderator interface {
	Ban(ctx context.Context, serverID, userID int64, reason string) error
	Kick(ctx context.Context, serverID, userID int64, reason string) error
}

type ProfileResolver interface {
	AvatarURL(ctx context.Context, userID int64) (string, error)
}

type PresenceSetter interface {
	SetPresence(ctx context.Context, status string) error
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
