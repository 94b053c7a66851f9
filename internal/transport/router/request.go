package router

import (
	"context"
	"strings"

	"lassbot/internal/i18n"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
)

type Request struct {
	Update transport.Update
	// Message is nil for callbacks.
	Message  *transport.Message
	Chat     transport.ChatTarget
	ServerID int64
	FromID   int64
	Command  string // command name or "cb:plugin:action"
	Args     []string
	// RawArgs is the text after the command name, as typed.
	RawArgs string
	Payload string // callback payload (raw string)
	Prefix  string
	ReqID   string
	IsOwner bool

	Adapter transport.Adapter
	Logger  logx.Logger
	Tr      *i18n.Translator
}

// T translates key in the configured locale.
func (r *Request) T(key string, args ...any) string { return r.Tr.T(key, args...) }

// Arg returns the i-th argument or "".
func (r *Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Rest joins the arguments from i on.
func (r *Request) Rest(i int) string {
	if i >= len(r.Args) {
		return ""
	}
	return strings.Join(r.Args[i:], " ")
}

func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &transport.SendOptions{DisablePreview: true})
	return err
}

// ReplyT translates key and replies.
func (r *Request) ReplyT(ctx context.Context, key string, args ...any) error {
	return r.Reply(ctx, r.T(key, args...))
}

func (r *Request) ReplyCard(ctx context.Context, card transport.Card) error {
	_, err := r.Adapter.SendCard(ctx, r.Chat, card, nil)
	return err
}

// Usage replies with the usage line of the current command.
func (r *Request) Usage(ctx context.Context, usage string) error {
	return r.ReplyT(ctx, i18n.MsgUsage, r.Adapter.Code(r.Prefix+usage))
}

// Permissions asks the adapter for the invoker's rights. Adapters without a
// PermissionChecker grant nothing; owners are handled by the caller.
func (r *Request) Permissions(ctx context.Context) transport.Perms {
	pc, ok := r.Adapter.(transport.PermissionChecker)
	if !ok {
		return transport.Perms{}
	}
	p, err := pc.Permissions(ctx, r.Chat.ChatID, r.FromID)
	if err != nil {
		r.Logger.Debug("permission lookup failed", logx.Err(err))
		return transport.Perms{}
	}
	return p
}
