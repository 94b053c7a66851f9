package rolls

import (
	"context"
	"reflect"
	"testing"

	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit/kittest"
	"lassbot/internal/storage"
)

func newPlugin(t *testing.T) (*Plugin, *kittest.Adapter, storage.Store) {
	t.Helper()
	st := kittest.OpenStore(t)
	p := New()
	p.intn = func(n int) int { return n - 1 }
	ctx := context.Background()
	if err := p.Init(ctx, plugin.Deps{Store: st}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	p.StartBase(ctx)
	return p, kittest.NewAdapter(), st
}

func run(t *testing.T, p *Plugin, ad *kittest.Adapter, name, args string) string {
	t.Helper()
	for _, c := range p.Commands() {
		if c.Name == name {
			if err := c.Handle(context.Background(), kittest.Request(ad, name, args)); err != nil {
				t.Fatalf("%s %s: error = %v", name, args, err)
			}
			return ad.Last(t)
		}
	}
	t.Fatalf("command %q not registered", name)
	return ""
}

func TestRollLifecycle(t *testing.T) {
	t.Parallel()
	p, ad, st := newPlugin(t)

	tests := []struct {
		cmd, args, want string
	}{
		{"rolls", "", "Nenhum roll neste servidor."},
		{"rollcreate", "Elemento", "Uso: `$rollcreate <nome> <opções>`"},
		{"rollcreate", "Elemento Fogo, Água, Terra", "Roll criado com sucesso!"},
		{"roll", "ELEMENTO", "terra"},
		{"roll", "cor", "Roll não encontrado."},
		{"rolls", "", "**Rolls deste servidor:**\n- **elemento**: fogo, água, terra"},
		{"rollcreate", "elemento Ar", "Roll criado com sucesso!"},
		{"roll", "elemento", "ar"},
		{"rolldelete", "Elemento", "Roll excluído com sucesso!"},
		{"rolldelete", "elemento", "Roll não encontrado ou você não tem permissão para excluí-lo."},
	}
	for _, tt := range tests {
		if got := run(t, p, ad, tt.cmd, tt.args); got != tt.want {
			t.Fatalf("%s %s = %q, want %q", tt.cmd, tt.args, got, tt.want)
		}
	}

	if _, err := st.GetRoll(context.Background(), kittest.ServerID, "elemento"); err == nil {
		t.Fatalf("roll still stored after delete")
	}
}

func TestDeleteIsOwnerScoped(t *testing.T) {
	t.Parallel()
	p, ad, st := newPlugin(t)
	ctx := context.Background()

	if err := st.CreateRoll(ctx, storage.Roll{ServerID: kittest.ServerID, Name: "sorte", Options: "sim,não", CreatorID: 1}); err != nil {
		t.Fatal(err)
	}
	if got := run(t, p, ad, "rolldelete", "sorte"); got != "Roll não encontrado ou você não tem permissão para excluí-lo." {
		t.Fatalf("foreign delete = %q", got)
	}
	if _, err := st.GetRoll(ctx, kittest.ServerID, "sorte"); err != nil {
		t.Fatalf("roll removed by non-owner: %v", err)
	}
}

func TestCreateCannotTakeOverRoll(t *testing.T) {
	t.Parallel()
	p, ad, st := newPlugin(t)
	ctx := context.Background()

	if err := st.CreateRoll(ctx, storage.Roll{ServerID: kittest.ServerID, Name: "sorte", Options: "sim,não", CreatorID: 1}); err != nil {
		t.Fatal(err)
	}
	if got := run(t, p, ad, "rollcreate", "Sorte talvez"); got != "Já existe um roll com esse nome criado por outra pessoa." {
		t.Fatalf("foreign rollcreate = %q", got)
	}
	r, err := st.GetRoll(ctx, kittest.ServerID, "sorte")
	if err != nil || r.CreatorID != 1 || r.Options != "sim,não" {
		t.Fatalf("GetRoll() = %+v, %v, want the original roll", r, err)
	}
}

func TestRollsAreServerScoped(t *testing.T) {
	t.Parallel()
	p, ad, st := newPlugin(t)

	if err := st.CreateRoll(context.Background(), storage.Roll{ServerID: kittest.ServerID + 1, Name: "sorte", Options: "sim", CreatorID: kittest.UserID}); err != nil {
		t.Fatal(err)
	}
	if got := run(t, p, ad, "roll", "sorte"); got != "Roll não encontrado." {
		t.Fatalf("roll from another server = %q", got)
	}
}

func TestChoose(t *testing.T) {
	t.Parallel()
	p, ad, _ := newPlugin(t)

	if got := run(t, p, ad, "choose", ""); got != "Forneça pelo menos uma opção." {
		t.Fatalf("choose without options = %q", got)
	}
	if got := run(t, p, ad, "choose", "pizza, lasanha ,  *sushi*"); got != `\*sushi\*` {
		t.Fatalf("choose = %q", got)
	}
}

func TestSplitOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , , b ", []string{"a", "b"}},
		{"solo", []string{"solo"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		if got := SplitOptions(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("SplitOptions(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
