package characters

import (
	"context"
	"testing"

	"lassbot/internal/pager"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit/kittest"
	"lassbot/internal/storage"
	"lassbot/pkg/logx"
)

type fixture struct {
	p  *Plugin
	ad *kittest.Adapter
	st storage.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := kittest.OpenStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	p := New()
	if err := p.Init(ctx, plugin.Deps{Store: st, Pager: pager.NewManager(ctx, logx.Nop(), nil)}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return &fixture{p: p, ad: kittest.NewAdapter(), st: st}
}

func (f *fixture) run(t *testing.T, name, args string) string {
	t.Helper()
	for _, c := range f.p.Commands() {
		if c.Name == name {
			if err := c.Handle(context.Background(), kittest.Request(f.ad, name, args)); err != nil {
				t.Fatalf("%s %s: error = %v", name, args, err)
			}
			return f.ad.Last(t)
		}
	}
	t.Fatalf("command %q not registered", name)
	return ""
}

func TestAddValidatesImage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		args string
		want string
	}{
		{`Lass "líder dos mergulhadores"`, "Uso: `$addcharacter <nome> <descrição> <servidor> [imagem]`"},
		{`Lass "líder" Abismo ftp://img/lass.png`, "URL da imagem inválida. Certifique-se de fornecer uma URL válida começando com http:// ou https://."},
		{`Lass "líder" Abismo notaurl`, "URL da imagem inválida. Certifique-se de fornecer uma URL válida começando com http:// ou https://."},
		{`Lass "líder dos mergulhadores" Abismo https://img.example/lass.png`, "Personagem adicionado com sucesso!"},
		{`Yin "a gentil" Abismo`, "Personagem adicionado com sucesso!"},
	}
	for _, tt := range tests {
		if got := f.run(t, "addcharacter", tt.args); got != tt.want {
			t.Fatalf("addcharacter %s = %q, want %q", tt.args, got, tt.want)
		}
	}

	list, err := f.st.ListCharacters(context.Background())
	if err != nil || len(list) != 2 {
		t.Fatalf("ListCharacters() = %d (%v), want 2", len(list), err)
	}
}

func TestGetAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if got := f.run(t, "listcharacters", ""); got != "Não há personagens disponíveis no momento." {
		t.Fatalf("empty list = %q", got)
	}
	f.run(t, "addcharacter", `Lass "líder" Abismo https://img.example/lass.png`)
	f.run(t, "addcharacter", `Yin gentil Jardim`)

	if got := f.run(t, "getcharacter", "Lass"); got != "Lass" {
		t.Fatalf("getcharacter title = %q", got)
	}
	card := f.ad.Sent()[len(f.ad.Sent())-1].Card
	if len(card.Fields) != 1 || card.Fields[0].Name != "Servidor" || card.Fields[0].Value != "Abismo" || card.ImageURL == "" {
		t.Fatalf("character card = %+v", card)
	}
	if got := f.run(t, "getcharacter", "Mandy"); got != "Personagem não encontrado." {
		t.Fatalf("missing getcharacter = %q", got)
	}

	f.run(t, "listcharacters", "")
	last := f.ad.Sent()[len(f.ad.Sent())-1]
	if last.Card == nil || last.Card.Footer != "1/2" {
		t.Fatalf("first page = %+v", last.Card)
	}
	if len(last.Opt.Nav) != 2 || last.Opt.Nav[0].Label != pager.NavSideArrows[0] || last.Opt.Nav[1].Label != pager.NavSideArrows[1] {
		t.Fatalf("nav = %+v", last.Opt.Nav)
	}
}

func TestEditAndDeleteAreOwnerScoped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.st.AddCharacter(ctx, storage.Character{Name: "Mandy", Server: "Abismo", CreatorID: 7}); err != nil {
		t.Fatal(err)
	}
	f.run(t, "addcharacter", "Ashley julgada Superfície")

	tests := []struct {
		cmd, args, want string
	}{
		{"editcharacter", "Ashley altura 1,70", "Campo inválido. Campos válidos são: description, server, image."},
		{"editcharacter", "Ashley imagem nope", "URL da imagem inválida. Certifique-se de fornecer uma URL válida começando com http:// ou https://."},
		{"editcharacter", "Ashley servidor Castelo Alto", "Personagem atualizado com sucesso!"},
		{"editcharacter", "Mandy servidor Castelo", "Personagem não encontrado ou você não tem permissão para alterá-lo."},
		{"deletecharacter", "Mandy", "Personagem não encontrado ou você não tem permissão para alterá-lo."},
		{"deletecharacter", "Ashley", "Personagem excluído com sucesso!"},
	}
	for _, tt := range tests {
		if got := f.run(t, tt.cmd, tt.args); got != tt.want {
			t.Fatalf("%s %s = %q, want %q", tt.cmd, tt.args, got, tt.want)
		}
	}

	if c, err := f.st.GetCharacter(ctx, "Mandy"); err != nil || c.Server != "Abismo" {
		t.Fatalf("Mandy = %+v (%v), want untouched", c, err)
	}
	if _, err := f.st.GetCharacter(ctx, "Ashley"); err == nil {
		t.Fatalf("Ashley still present after delete")
	}
}
