package eventbus

import "testing"

func TestPublishFansOut(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(1)
	defer unsubA()
	defer unsubC()

	Emit(b, RoutineChanged, "09:00")

	for i, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Type != RoutineChanged || e.Time.IsZero() {
				t.Fatalf("subscriber %d got %+v", i, e)
			}
		default:
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})

	if e := <-ch; e.Type != "a" {
		t.Fatalf("first event = %q, want a", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %q", e.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	b.Publish(Event{Type: "after"})
}

func TestEmitNilBus(t *testing.T) {
	t.Parallel()
	Emit(nil, CommandHandled, nil)
}

func TestFamily(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"routine.changed": "routine",
		"plain":           "plain",
		".odd":            ".odd",
	}
	for in, want := range tests {
		if got := Family(in); got != want {
			t.Fatalf("Family(%q) = %q, want %q", in, got, want)
		}
	}
}
