package progress

import "testing"

func TestBrokerDeliversTypedEvents(t *testing.T) {
	b := NewBroker()
	events := b.Subscribe(4)

	b.Start("routes", 10, "starting")
	b.Progress("routes", 1, 10, "A -> B", map[string]any{"ok": 1})
	b.Complete("routes", "done", nil)
	b.Close()

	var kinds []EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
		if ev.Stage != "routes" {
			t.Errorf("stage = %q, want routes", ev.Stage)
		}
		if ev.At.IsZero() {
			t.Error("event missing timestamp")
		}
	}

	want := []EventKind{KindStart, KindProgress, KindComplete}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroker()
	events := b.Subscribe(1)

	// Nothing drains the channel; the second publish must drop, not block.
	b.Progress("routes", 1, 2, "", nil)
	b.Progress("routes", 2, 2, "", nil)
	b.Close()

	var n int
	for range events {
		n++
	}
	if n != 1 {
		t.Fatalf("delivered = %d, want 1 (overflow dropped)", n)
	}
}

func TestNilBrokerIsSafe(t *testing.T) {
	var b *Broker
	b.Progress("routes", 1, 1, "", nil)
}
