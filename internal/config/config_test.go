package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.yaml", `
platform: telegram
bot:
  prefix: "!"
  owner_user_ids: [10, 20]
pager:
  idle_timeout: 30s
plugins:
  fun:
    config:
      humor_overrides:
        123: "Sempre feliz"
`)
	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PlatformName() != PlatformTelegram {
		t.Fatalf("platform = %q", cfg.PlatformName())
	}
	if got := cfg.Bot.PrefixOrDefault(); got != "!" {
		t.Fatalf("prefix = %q, want !", got)
	}
	if len(cfg.Bot.OwnerUserIDs) != 2 {
		t.Fatalf("owners = %v", cfg.Bot.OwnerUserIDs)
	}
	if got := DurationOr(cfg.Pager.IdleTimeout, DefaultPagerIdle); got != 30*time.Second {
		t.Fatalf("idle = %v", got)
	}
	if !cfg.Plugin("fun").IsEnabled() || len(cfg.Plugin("fun").Config) == 0 {
		t.Fatalf("fun plugin = %+v", cfg.Plugin("fun"))
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, file, body string
	}{
		{"json top level", "c.json", `{"platfrom":"discord"}`},
		{"yaml nested", "c.yaml", "bot:\n  prefx: '!'\n"},
		{"plugin entry", "c.json", `{"plugins":{"fun":{"enabled":true,"timeout":"1s"}}}`},
		{"trailing data", "c.json", `{} {}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tt.file, []byte(tt.body)); err == nil {
				t.Fatalf("Decode(%s) error = nil, want error", tt.body)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"unknown platform", Config{Platform: "irc"}, true},
		{"bad duration", Config{Pager: PagerConfig{IdleTimeout: "soon"}}, true},
		{"negative duration", Config{Bot: BotConfig{CommandTimeout: "-1s"}}, true},
		{"bad timezone", Config{Scheduler: SchedulerConfig{Timezone: "Mars/Base"}}, true},
		{"prefix with space", Config{Bot: BotConfig{Prefix: "a b"}}, true},
		{"unknown driver", Config{Storage: StorageConfig{Driver: "mongo"}}, true},
		{"postgres ok", Config{Storage: StorageConfig{Driver: "postgres", DSN: "postgres://x"}}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveTokenPrefersEnvironment(t *testing.T) {
	t.Setenv("LASSBOT_TEST_TOKEN", "from-env")
	cfg := &Config{Discord: DiscordConfig{Token: "from-file", TokenEnv: "LASSBOT_TEST_TOKEN"}}
	got, err := ResolveToken(cfg)
	if err != nil || got != "from-env" {
		t.Fatalf("ResolveToken() = %q, %v", got, err)
	}
}

func TestResolveTokenMissing(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	_, err := ResolveToken(&Config{Platform: "telegram"})
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("ResolveToken() error = %v, want ErrMissingToken", err)
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.json", `{"bot":{"prefix":"$"}}`)
	m := NewManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ok, err := m.Reload(context.Background())
	if err != nil || ok {
		t.Fatalf("Reload(unchanged) = %v, %v", ok, err)
	}

	if err := os.WriteFile(p, []byte(`{"bot":{"prefix":"!"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err = m.Reload(context.Background())
	if err != nil || !ok {
		t.Fatalf("Reload(changed) = %v, %v", ok, err)
	}
	got := <-ch
	if got.Bot.PrefixOrDefault() != "!" {
		t.Fatalf("published prefix = %q", got.Bot.Prefix)
	}
}

func TestReloadHonorsValidator(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "config.json", `{}`)
	m := NewManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	var rejected error
	m.OnReject(func(err error) { rejected = err })
	m.SetValidator(func(ctx context.Context, cfg *Config) error { return errors.New("nope") })

	if err := os.WriteFile(p, []byte(`{"bot":{"prefix":"!"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := m.Reload(context.Background()); ok || err == nil {
		t.Fatalf("Reload() = %v, %v; want rejection", ok, err)
	}
	if rejected == nil {
		t.Fatal("OnReject was not called")
	}
	if m.Get().Bot.Prefix != "" {
		t.Fatalf("rejected config was committed")
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	off := false
	oldCfg := &Config{Metrics: MetricsConfig{Token: "a"}}
	newCfg := &Config{
		Bot:       BotConfig{Prefix: "!"},
		Storage:   StorageConfig{Driver: "postgres"},
		Metrics:   MetricsConfig{Token: "b"},
		Scheduler: SchedulerConfig{Enabled: &off},
		Plugins:   map[string]PluginConfigRaw{"fun": {Enabled: &off}},
	}
	ch := Diff(oldCfg, newCfg)
	for _, s := range []string{"bot", "storage", "metrics", "scheduler", "plugins"} {
		if !ch.Has(s) {
			t.Fatalf("Diff sections = %v, missing %s", ch.Sections, s)
		}
	}
	if len(ch.RestartOnly) != 1 || ch.RestartOnly[0] != "storage" {
		t.Fatalf("RestartOnly = %v", ch.RestartOnly)
	}
	if len(ch.Plugins) != 1 || ch.Plugins[0] != "fun" {
		t.Fatalf("Plugins = %v", ch.Plugins)
	}
	if !Diff(newCfg, newCfg).Empty() {
		t.Fatal("identical configs should not differ")
	}
}

func TestHashRawIgnoresKeyOrder(t *testing.T) {
	t.Parallel()
	if hashRaw([]byte(`{"a":1,"b":2}`)) != hashRaw([]byte(`{ "b":2, "a":1 }`)) {
		t.Fatal("hashRaw should be canonical")
	}
}
