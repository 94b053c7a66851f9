package system

import (
	"context"
	"strings"
	"testing"
	"time"

	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit/kittest"
	"lassbot/internal/transport/router"
)

func TestHealthReport(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC)
	clock := start
	p := &Plugin{now: func() time.Time { return clock }}

	statuses := []plugin.Status{
		{Name: "powers", Running: true, Health: "ok"},
		{Name: "fun", Running: false},
	}
	deps := plugin.Deps{Status: func(context.Context) []plugin.Status { return statuses }}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	clock = start.Add(2*time.Hour + 5*time.Minute)

	cmds := p.Commands()
	if len(cmds) != 1 || cmds[0].Access != router.AccessOwnerOnly {
		t.Fatalf("Commands() = %+v, want one owner-only command", cmds)
	}

	ad := kittest.NewAdapter()
	if err := cmds[0].Handle(context.Background(), kittest.Request(ad, "health", "")); err != nil {
		t.Fatalf("health error = %v", err)
	}
	got := strings.Split(ad.Last(t), "\n")
	want := map[int]string{
		0: "**Saúde do bot: Funcionando**",
		1: "Ativo há: 2h5m",
		3: "Plugins:",
		4: "- **powers**: ok",
		5: "- **fun**: parado",
	}
	if len(got) != 6 {
		t.Fatalf("health lines = %q", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("line %d = %q, want %q", i, got[i], w)
		}
	}
	if !strings.HasPrefix(got[2], "Memória: ") {
		t.Fatalf("runtime line = %q", got[2])
	}

	statuses[0].Err = "db locked"
	if err := cmds[0].Handle(context.Background(), kittest.Request(ad, "health", "")); err != nil {
		t.Fatalf("health error = %v", err)
	}
	if got := ad.Last(t); !strings.HasPrefix(got, "**Saúde do bot: Degradado**") || !strings.Contains(got, "ok (db locked)") {
		t.Fatalf("degraded health = %q", got)
	}
}

func TestDurRel(t *testing.T) {
	t.Parallel()

	tests := map[time.Duration]string{
		42 * time.Second:               "42s",
		3*time.Minute + 4*time.Second:  "3m4s",
		26*time.Hour + 30*time.Minute:  "26h30m",
		-90 * time.Second:              "1m30s",
	}
	for in, want := range tests {
		if got := durRel(in); got != want {
			t.Fatalf("durRel(%v) = %q, want %q", in, got, want)
		}
	}
}
