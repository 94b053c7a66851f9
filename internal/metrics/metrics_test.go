package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"lassbot/internal/eventbus"
	"lassbot/internal/pager"
	"lassbot/internal/plugin"
	"lassbot/internal/routines"
	"lassbot/internal/task/scheduler"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

func newTestSink(t *testing.T, g Gauges) (*Sink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewSink(reg, g, logx.Nop()), reg
}

func TestObserveCountsEvents(t *testing.T) {
	t.Parallel()

	s, _ := newTestSink(t, Gauges{})
	events := []eventbus.Event{
		{Type: eventbus.CommandHandled, Data: router.Handled{Command: "dado", Took: 20 * time.Millisecond}},
		{Type: eventbus.CommandHandled, Data: router.Handled{Command: "dado", Err: "boom"}},
		{Type: eventbus.RoutineDelivered, Data: routines.Delivery{}},
		{Type: eventbus.RoutineDelivered, Data: routines.Delivery{Err: "chat gone"}},
		{Type: eventbus.RoutineChanged, Data: routines.Change{Removed: true}},
		{Type: eventbus.SchedulerJob, Data: scheduler.JobResult{Name: "routine:09:00:42"}},
		{Type: eventbus.PagerOpened, Data: pager.OpenedEvent{Pages: 3}},
		{Type: eventbus.PagerClosed, Data: pager.ClosedEvent{}},
		{Type: eventbus.PluginState, Data: plugin.StateEvent{Plugin: "fun", Stage: "started"}},
		{Type: eventbus.ConfigRejected},
	}
	for _, ev := range events {
		s.Observe(ev)
	}

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"commands ok", s.commandsTotal.WithLabelValues("dado", "ok"), 1},
		{"commands error", s.commandsTotal.WithLabelValues("dado", "error"), 1},
		{"deliveries ok", s.deliveriesTotal.WithLabelValues("ok"), 1},
		{"deliveries error", s.deliveriesTotal.WithLabelValues("error"), 1},
		{"routine removed", s.routineChanges.WithLabelValues("removed"), 1},
		{"scheduler ok", s.schedulerRuns.WithLabelValues("ok"), 1},
		{"pager opened", s.pagerOpened, 1},
		{"pager closed", s.pagerClosed.WithLabelValues("ok"), 1},
		{"plugin started", s.pluginStates.WithLabelValues("fun", "started"), 1},
		{"config rejected", s.configReloads.WithLabelValues("rejected"), 1},
		{"command family", s.eventsTotal.WithLabelValues("command"), 2},
		{"routine family", s.eventsTotal.WithLabelValues("routine"), 3},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Fatalf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGaugesSampledOnScrape(t *testing.T) {
	t.Parallel()

	n := 2.0
	_, reg := newTestSink(t, Gauges{Routines: func() float64 { return n }})

	if got, err := testutil.GatherAndCount(reg, "lassbot_routines"); err != nil || got != 1 {
		t.Fatalf("lassbot_routines series = %d (%v), want 1", got, err)
	}
	if got, err := testutil.GatherAndCount(reg, "lassbot_pager_sessions_active"); err != nil || got != 0 {
		t.Fatalf("unset gauge registered %d series (%v)", got, err)
	}
	n = 5
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "lassbot_routines" {
			if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 5 {
				t.Fatalf("lassbot_routines = %v, want 5", v)
			}
			return
		}
	}
	t.Fatalf("lassbot_routines not gathered")
}

func TestRunStopsWithContext(t *testing.T) {
	t.Parallel()

	s, _ := newTestSink(t, Gauges{})
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, bus)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(s.pagerOpened) == 0 {
		bus.Publish(eventbus.Event{Type: eventbus.PagerOpened, Data: pager.OpenedEvent{}})
		if time.Now().After(deadline) {
			t.Fatalf("event not observed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func get(t *testing.T, h http.Handler, target, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	s, reg := newTestSink(t, Gauges{})
	s.Observe(eventbus.Event{Type: eventbus.CommandHandled, Data: router.Handled{Command: "help"}})

	healthy := true
	srv := NewServer(Config{}, reg, func(context.Context) error {
		if !healthy {
			return errors.New("store unreachable")
		}
		return nil
	}, logx.Nop())

	open := srv.Handler(Config{})
	code, body := get(t, open, "/metrics", "")
	if code != http.StatusOK || !strings.Contains(body, `lassbot_commands_total{command="help",outcome="ok"} 1`) {
		t.Fatalf("/metrics = %d %q", code, body)
	}
	if code, body := get(t, open, "/healthz", ""); code != http.StatusOK || body != "ok" {
		t.Fatalf("/healthz = %d %q", code, body)
	}
	healthy = false
	if code, _ := get(t, open, "/healthz", ""); code != http.StatusServiceUnavailable {
		t.Fatalf("/healthz unhealthy = %d, want 503", code)
	}

	guarded := srv.Handler(Config{Token: "s3cret", Path: "stats"})
	tests := []struct {
		target, auth string
		want         int
	}{
		{"/stats", "", http.StatusUnauthorized},
		{"/stats", "Bearer nope", http.StatusUnauthorized},
		{"/stats", "Bearer s3cret", http.StatusOK},
		{"/stats?token=s3cret", "", http.StatusOK},
		{"/stats?token=nope", "Bearer s3cret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if code, _ := get(t, guarded, tt.target, tt.auth); code != tt.want {
			t.Fatalf("GET %s (%q) = %d, want %d", tt.target, tt.auth, code, tt.want)
		}
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"127.0.0.1:9090": true,
		"localhost:9090": true,
		"[::1]:9090":     true,
		":9090":          false,
		"0.0.0.0:9090":   false,
		"10.0.0.2:9090":  false,
		"garbage":        false,
	}
	for addr, want := range tests {
		if got := isLoopbackAddr(addr); got != want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestServerRefusesInsecureBind(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{Enabled: true, Addr: "0.0.0.0:0"}, prometheus.NewRegistry(), nil, logx.Nop())
	if err := srv.serveOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "insecure bind") {
		t.Fatalf("serveOnce() error = %v, want insecure bind refusal", err)
	}
}
