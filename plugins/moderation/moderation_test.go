package moderation

import (
	"context"
	"errors"
	"testing"

	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit/kittest"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
)

func command(t *testing.T, p *Plugin, name string) router.Command {
	t.Helper()
	for _, c := range p.Commands() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("command %q not registered", name)
	return router.Command{}
}

func newPlugin(t *testing.T) *Plugin {
	t.Helper()
	p := New()
	if err := p.Init(context.Background(), plugin.Deps{}); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCommandsRequireRights(t *testing.T) {
	t.Parallel()
	p := newPlugin(t)

	if c := command(t, p, "ban"); c.Requires != router.PermBan || !c.ServerOnly {
		t.Fatalf("ban = %+v", c)
	}
	if c := command(t, p, "kick"); c.Requires != router.PermKick || !c.ServerOnly {
		t.Fatalf("kick = %+v", c)
	}
}

func TestBanAndKick(t *testing.T) {
	t.Parallel()
	p := newPlugin(t)
	ad := kittest.NewAdapter()
	ctx := context.Background()

	tests := []struct {
		cmd, args string
		want      string
		mod       kittest.Moderation
	}{
		{"ban", "<@55> spam no chat", "Usuário <@55> foi banido por spam no chat.", kittest.Moderation{Action: "ban", ServerID: kittest.ServerID, UserID: 55, Reason: "spam no chat"}},
		{"kick", "<@!56>", "Usuário <@56> foi expulso por motivo não informado.", kittest.Moderation{Action: "kick", ServerID: kittest.ServerID, UserID: 56, Reason: "motivo não informado"}},
		{"kick", "57 flood", "Usuário <@57> foi expulso por flood.", kittest.Moderation{Action: "kick", ServerID: kittest.ServerID, UserID: 57, Reason: "flood"}},
	}
	for i, tt := range tests {
		if err := command(t, p, tt.cmd).Handle(ctx, kittest.Request(ad, tt.cmd, tt.args)); err != nil {
			t.Fatalf("%s %s: %v", tt.cmd, tt.args, err)
		}
		if got := ad.Last(t); got != tt.want {
			t.Fatalf("%s %s = %q, want %q", tt.cmd, tt.args, got, tt.want)
		}
		if got := ad.Moderations()[i]; got != tt.mod {
			t.Fatalf("moderation = %+v, want %+v", got, tt.mod)
		}
	}
}

func TestBanRejectsBadInput(t *testing.T) {
	t.Parallel()
	p := newPlugin(t)
	ad := kittest.NewAdapter()
	ctx := context.Background()

	tests := []struct {
		args, want string
	}{
		{"", "Uso: `$ban <usuário> [motivo]`"},
		{"@fulano", "Usuário inválido."},
	}
	for _, tt := range tests {
		if err := command(t, p, "ban").Handle(ctx, kittest.Request(ad, "ban", tt.args)); err != nil {
			t.Fatal(err)
		}
		if got := ad.Last(t); got != tt.want {
			t.Fatalf("ban %q = %q, want %q", tt.args, got, tt.want)
		}
	}
	if n := len(ad.Moderations()); n != 0 {
		t.Fatalf("moderations = %d, want 0", n)
	}
}

func TestBanReportsPlatformError(t *testing.T) {
	t.Parallel()
	p := newPlugin(t)
	ad := kittest.NewAdapter()
	ad.ModErr = errors.New("missing permissions")

	if err := command(t, p, "ban").Handle(context.Background(), kittest.Request(ad, "ban", "55")); err != nil {
		t.Fatal(err)
	}
	if got, want := ad.Last(t), "Erro ao banir <@55>: missing permissions"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

type textOnly struct {
	transport.Adapter
}

func TestBanUnsupportedAdapter(t *testing.T) {
	t.Parallel()
	p := newPlugin(t)
	ad := kittest.NewAdapter()

	req := kittest.Request(textOnly{ad}, "ban", "55")
	if err := command(t, p, "ban").Handle(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := ad.Last(t); got != "Este comando não é suportado nesta plataforma." {
		t.Fatalf("reply = %q", got)
	}
}
