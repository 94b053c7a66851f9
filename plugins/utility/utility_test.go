package utility

import (
	"context"
	"testing"

	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit/kittest"
	"lassbot/internal/transport"
)

type prefixBox struct{ p string }

func (b *prefixBox) Prefix() string     { return b.p }
func (b *prefixBox) SetPrefix(p string) { b.p = p }

func newPlugin(t *testing.T, prefix *prefixBox) *Plugin {
	t.Helper()
	p := New()
	deps := plugin.Deps{}
	if prefix != nil {
		deps.Prefix = prefix
	}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatal(err)
	}
	return p
}

func handle(t *testing.T, p *Plugin, ad transport.Adapter, name, args string) {
	t.Helper()
	for _, c := range p.Commands() {
		if c.Name == name {
			if err := c.Handle(context.Background(), kittest.Request(ad, name, args)); err != nil {
				t.Fatalf("%s %s: error = %v", name, args, err)
			}
			return
		}
	}
	t.Fatalf("command %q not registered", name)
}

func TestEditPrefix(t *testing.T) {
	t.Parallel()
	box := &prefixBox{p: "$"}
	p := newPlugin(t, box)
	ad := kittest.NewAdapter()

	tests := []struct {
		args, want, prefix string
	}{
		{"", "O prefixo não pode ser vazio nem conter espaços.", "$"},
		{"a b", "O prefixo não pode ser vazio nem conter espaços.", "$"},
		{"!!!!!!", "O prefixo não pode ser vazio nem conter espaços.", "$"},
		{"!", `Prefixo atualizado para "!"`, "!"},
		{"l*", `Prefixo atualizado para "l\*"`, "l*"},
	}
	for _, tt := range tests {
		handle(t, p, ad, "editprefix", tt.args)
		if got := ad.Last(t); got != tt.want {
			t.Fatalf("editprefix %q = %q, want %q", tt.args, got, tt.want)
		}
		if box.p != tt.prefix {
			t.Fatalf("prefix after %q = %q, want %q", tt.args, box.p, tt.prefix)
		}
	}
}

func TestEditPrefixWithoutEditor(t *testing.T) {
	t.Parallel()
	p := newPlugin(t, nil)
	ad := kittest.NewAdapter()

	handle(t, p, ad, "editprefix", "!")
	if got := ad.Last(t); got != "Este comando não é suportado nesta plataforma." {
		t.Fatalf("reply = %q", got)
	}
}

func TestAvatar(t *testing.T) {
	t.Parallel()
	p := newPlugin(t, nil)
	ad := kittest.NewAdapter()
	ad.Avatars[kittest.UserID] = "https://cdn.example/me.png"
	ad.Avatars[77] = ""
	ad.Avatars[88] = "https://cdn.example/88.png"

	tests := []struct {
		args, want string
	}{
		{"", "https://cdn.example/me.png"},
		{"<@88>", "https://cdn.example/88.png"},
		{"77", "Este usuário não tem avatar."},
		{"99", "Usuário inválido."},
		{"fulano", "Usuário inválido."},
	}
	for _, tt := range tests {
		handle(t, p, ad, "avatar", tt.args)
		if got := ad.Last(t); got != tt.want {
			t.Fatalf("avatar %q = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestConvertImage(t *testing.T) {
	t.Parallel()
	p := newPlugin(t, nil)
	ad := kittest.NewAdapter()

	handle(t, p, ad, "convertimage", "")
	if got := ad.Last(t); got != "Nenhuma imagem anexada encontrada." {
		t.Fatalf("no attachments = %q", got)
	}

	req := kittest.Request(ad, "convertimage", "")
	req.Message.Attachments = []transport.Attachment{
		{Filename: "a.png", URL: "https://cdn.example/a.png"},
		{Filename: "b.jpg", URL: "https://cdn.example/b.jpg"},
	}
	for _, c := range p.Commands() {
		if c.Name == "convertimage" {
			if err := c.Handle(context.Background(), req); err != nil {
				t.Fatal(err)
			}
		}
	}
	want := "Links das imagens anexadas:\n`https://cdn.example/a.png`\n`https://cdn.example/b.jpg`"
	if got := ad.Last(t); got != want {
		t.Fatalf("convertimage = %q, want %q", got, want)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	p := newPlugin(t, nil)
	ad := kittest.NewAdapter()

	handle(t, p, ad, "status", "")
	if got := ad.Last(t); got != "Este comando é apenas para mostrar o status personalizado do bot." {
		t.Fatalf("status = %q", got)
	}
}

func TestValidPrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{"$": true, "!": true, "lass.": true, "": false, "a b": false, "\t": false, "123456": false}
	for in, want := range tests {
		if got := ValidPrefix(in); got != want {
			t.Fatalf("ValidPrefix(%q) = %v, want %v", in, got, want)
		}
	}
}
