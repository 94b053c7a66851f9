package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"lassbot/internal/eventbus"
	"lassbot/pkg/logx"
)

func TestDailySpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00", "0 0 9 * * *", false},
		{"23:59:30", "30 59 23 * * *", false},
		{"00:00", "0 0 0 * * *", false},
		{"9:00", "", true},
		{"24:00", "", true},
		{"12:60", "", true},
		{"12:00:61", "", true},
		{"12:00:0", "", true},
		{" 12:00", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := DailySpec(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DailySpec(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("DailySpec(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddDailyUpsertsByName(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	noop := func(ctx context.Context) error { return nil }
	for _, clock := range []string{"09:00", "10:30"} {
		if _, err := s.AddDaily("routine:x", clock, time.Second, noop); err != nil {
			t.Fatalf("AddDaily(%s) error = %v", clock, err)
		}
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 {
		t.Fatalf("schedules = %d, want 1", len(snap.Schedules))
	}
	got := snap.Schedules[0]
	if got.Spec != "0 30 10 * * *" {
		t.Fatalf("spec = %q", got.Spec)
	}
	if got.Next.IsZero() || got.Next.Hour() != 10 || got.Next.Minute() != 30 {
		t.Fatalf("next = %v", got.Next)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if _, err := s.AddDaily("a", "08:00", 0, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if !s.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if s.Remove("a") {
		t.Fatal("second Remove(a) = true, want false")
	}
	if s.Has("a") {
		t.Fatal("Has(a) after remove")
	}
}

func TestDefinitionsSurviveRestart(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, logx.Nop(), nil)
	if _, err := s.AddDaily("b", "07:15", 0, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if snap := s.Snapshot(); snap.Running || len(snap.Schedules) != 1 {
		t.Fatalf("disabled snapshot = %+v", snap)
	}
	s.Apply(Config{Enabled: true, Timezone: "America/Sao_Paulo"})
	defer s.Stop(context.Background())

	snap := s.Snapshot()
	if !snap.Running || snap.Timezone != "America/Sao_Paulo" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Schedules[0].Next.IsZero() {
		t.Fatal("schedule was not installed on start")
	}
}

func TestRunNowAppliesTimeoutAndPublishes(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{}, logx.Nop(), bus)
	_, err := s.AddCron("slow", "@daily", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RunNow(context.Background(), "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunNow() error = %v, want deadline exceeded", err)
	}
	e := <-events
	res, ok := e.Data.(JobResult)
	if e.Type != eventbus.SchedulerJob || !ok || res.Name != "slow" || res.Err == "" {
		t.Fatalf("event = %+v", e)
	}
	if snap := s.Snapshot(); snap.Schedules[0].Runs != 1 {
		t.Fatalf("runs = %d, want 1", snap.Schedules[0].Runs)
	}
}

func TestAddCronRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	if _, err := s.AddCron("bad", "not a spec", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("AddCron(bad spec) error = nil")
	}
	if _, err := s.AddCron("", "@daily", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("AddCron(empty name) error = nil")
	}
}
