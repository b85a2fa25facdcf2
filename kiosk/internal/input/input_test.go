package input

import "testing"

func TestLatch_PollConsumes(t *testing.T) {
	l := NewLatch()
	l.Press(KeyA)
	l.Press(KeyRight)
	l.Press(KeyA)

	ev := l.Poll()
	if !ev.A || !ev.Right || ev.B || ev.Left || ev.Joy {
		t.Errorf("Unexpected events: %+v", ev)
	}

	if l.Poll().Any() {
		t.Error("Second poll must be empty")
	}
}

func TestEvents_Any(t *testing.T) {
	if (Events{}).Any() {
		t.Error("Empty events must report no input")
	}
	if !(Events{Joy: true}).Any() {
		t.Error("Joy edge must count as input")
	}
}
