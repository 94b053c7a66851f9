package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"lassbot/internal/config"
	"lassbot/internal/pluginkit/kittest"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
	"lassbot/pkg/tgui"
)

type fakeBot struct {
	owners  []int64
	prefix  string
	locale  string
	rate    int
	timeout time.Duration
}

func (f *fakeBot) SetOwners(o []int64)               { f.owners = o }
func (f *fakeBot) SetPrefix(p string)                { f.prefix = p }
func (f *fakeBot) SetLocale(l string)                { f.locale = l }
func (f *fakeBot) SetRateLimit(n int)                { f.rate = n }
func (f *fakeBot) SetCommandTimeout(d time.Duration) { f.timeout = d }

func TestApplyBotKeepsRuntimePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prev, next config.BotConfig
		want       string
	}{
		{"prefix unchanged in file", config.BotConfig{Prefix: "$", RatePerUser: 5}, config.BotConfig{Prefix: "$", RatePerUser: 9}, "!"},
		{"prefix changed in file", config.BotConfig{Prefix: "$"}, config.BotConfig{Prefix: "?"}, "?"},
		{"prefix removed falls back to default", config.BotConfig{Prefix: "?"}, config.BotConfig{}, "$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := &fakeBot{prefix: "!"}
			applyBot(f, tt.prev, tt.next)
			if f.prefix != tt.want {
				t.Fatalf("prefix = %q, want %q", f.prefix, tt.want)
			}
			if f.rate != tt.next.RatePerUser {
				t.Fatalf("rate = %d, want %d", f.rate, tt.next.RatePerUser)
			}
			if f.timeout != config.DefaultCommandTimeout {
				t.Fatalf("timeout = %v, want %v", f.timeout, config.DefaultCommandTimeout)
			}
			if f.locale != config.DefaultLocale {
				t.Fatalf("locale = %q, want %q", f.locale, config.DefaultLocale)
			}
		})
	}
}

func TestMapMetricsConfig(t *testing.T) {
	t.Parallel()

	mc, err := mapMetricsConfig(&config.Config{Metrics: config.MetricsConfig{Enabled: true, Token: " tok ", ReadTimeout: "5s"}})
	if err != nil {
		t.Fatalf("mapMetricsConfig() error = %v", err)
	}
	if mc.Addr != config.DefaultMetricsAddr || mc.Path != config.DefaultMetricsPath {
		t.Fatalf("addr/path = %q %q, want defaults", mc.Addr, mc.Path)
	}
	if mc.Token != "tok" || mc.ReadTimeout != 5*time.Second {
		t.Fatalf("token/read = %q %v", mc.Token, mc.ReadTimeout)
	}

	if _, err := mapMetricsConfig(&config.Config{Metrics: config.MetricsConfig{IdleTimeout: "later"}}); err == nil {
		t.Fatalf("mapMetricsConfig() accepted a bad duration")
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Setenv("LASSBOT_TEST_DSN", "postgres://bot@db/lass")

	tests := []struct {
		name       string
		in         config.StorageConfig
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite default path", config.StorageConfig{}, "sqlite", config.DefaultStoragePath, false},
		{"sqlite explicit path", config.StorageConfig{Path: "data/bot.db", BusyTimeout: "2s"}, "sqlite", "data/bot.db", false},
		{"postgres from env", config.StorageConfig{Driver: "postgres", DSNEnv: "LASSBOT_TEST_DSN"}, "postgres", "postgres://bot@db/lass", false},
		{"postgres without dsn", config.StorageConfig{Driver: "postgres"}, "", "", true},
		{"bad busy timeout", config.StorageConfig{BusyTimeout: "x"}, "", "", true},
	}
	for _, tt := range tests {
		sc, err := mapStorageConfig(&config.Config{Storage: tt.in})
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err == nil && (sc.Driver != tt.wantDriver || sc.DSN != tt.wantDSN) {
			t.Fatalf("%s: got %s %q, want %s %q", tt.name, sc.Driver, sc.DSN, tt.wantDriver, tt.wantDSN)
		}
	}
}

func TestMapLogAndSchedulerConfig(t *testing.T) {
	t.Parallel()

	off := false
	cfg := &config.Config{
		Logging:   config.LoggingConfig{Level: "debug", Chat: config.LoggingChat{Enabled: true, ChatID: -100, ThreadID: 3, MinLevel: "warn"}},
		Scheduler: config.SchedulerConfig{Enabled: &off, Timezone: " America/Sao_Paulo "},
	}
	lc := mapLogConfig(cfg)
	if lc.Level != "debug" || !lc.Chat.Enabled || lc.Chat.ChatID != -100 || lc.Chat.ThreadID != 3 || lc.Chat.MinLevel != "warn" {
		t.Fatalf("mapLogConfig() = %+v", lc)
	}
	sc := mapSchedulerConfig(cfg)
	if sc.Enabled || sc.Timezone != "America/Sao_Paulo" {
		t.Fatalf("mapSchedulerConfig() = %+v", sc)
	}
}

func TestPresenceText(t *testing.T) {
	t.Parallel()

	if got := presenceText(&config.Config{}, "$"); got != "$help Mommy Lass" {
		t.Fatalf("presenceText() = %q", got)
	}
	if got := presenceText(&config.Config{Discord: config.DiscordConfig{Status: "rolando dados"}}, "$"); got != "rolando dados" {
		t.Fatalf("presenceText() = %q", got)
	}
}

func TestChatLogEscapesAndTargets(t *testing.T) {
	t.Parallel()

	ad := kittest.NewAdapter()
	if err := (chatLog{ad: ad}).SendLog(context.Background(), -100, 7, "WRN *boom*"); err != nil {
		t.Fatalf("SendLog() error = %v", err)
	}
	sent := ad.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].To.ChatID != -100 || sent[0].To.ThreadID != 7 {
		t.Fatalf("target = %+v", sent[0].To)
	}
	if sent[0].Text != `WRN \*boom\*` {
		t.Fatalf("text = %q", sent[0].Text)
	}
}

func TestRoutineSenderEscapesText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		f        transport.Formatter
		in, want string
	}{
		{"markdown", transport.Markdown{}, "Bom *Dia*", `Bom \*Dia\*`},
		{"telegram html", tgui.Format{}, "Tom & Jerry <3", "Tom &amp; Jerry &lt;3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ad := kittest.NewAdapter()
			ad.Formatter = tt.f
			if err := routineSender(ad)(context.Background(), 42, tt.in); err != nil {
				t.Fatalf("send() error = %v", err)
			}
			if got := ad.Last(t); got != tt.want {
				t.Fatalf("text = %q, want %q", got, tt.want)
			}
			if ad.Sent()[0].To.ChatID != 42 {
				t.Fatalf("destination = %d, want 42", ad.Sent()[0].To.ChatID)
			}
		})
	}
}

func TestNewAdapterNeedsToken(t *testing.T) {
	t.Setenv("LASSBOT_EMPTY_TOKEN", "")

	_, err := newAdapter(&config.Config{Discord: config.DiscordConfig{TokenEnv: "LASSBOT_EMPTY_TOKEN"}}, logx.Nop())
	if !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("newAdapter() error = %v, want ErrMissingToken", err)
	}
}

func TestStepBoundsSlowWork(t *testing.T) {
	t.Parallel()

	a := &App{log: logx.Nop()}
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	a.step(context.Background(), "slow", 50*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})
	if took := time.Since(start); took > time.Second {
		t.Fatalf("step took %v, want it bounded", took)
	}

	var ran bool
	a.step(context.Background(), "panics", time.Second, func(context.Context) error {
		ran = true
		panic("boom")
	})
	if !ran {
		t.Fatalf("step did not run fn")
	}
}

func TestStepRespectsCallerDeadline(t *testing.T) {
	t.Parallel()

	a := &App{log: logx.Nop()}
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	called := false
	a.step(ctx, "late", time.Second, func(context.Context) error { called = true; return nil })
	if called {
		t.Fatalf("step ran with no time left")
	}
}
