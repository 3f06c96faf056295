package core

import (
	"testing"
	"time"

	"github.com/mikey-austin/pitv/pkg/pitv"
)

func TestAlertExpiresAfterTimeout(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(nil, clock.AfterFunc)

	alert := q.Show("saved", pitv.LevelSuccess, 100*time.Millisecond)
	if got := q.Alerts(); len(got) != 1 || got[0].ID != alert.ID {
		t.Fatalf("expected alert present immediately, got %+v", got)
	}

	clock.Advance(150 * time.Millisecond)
	if got := q.Alerts(); len(got) != 0 {
		t.Fatalf("expected alert expired, got %+v", got)
	}
}

func TestAlertDefaults(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(nil, clock.AfterFunc)

	alert := q.Show("hello", pitv.Level("shouting"), 0)
	if alert.Level != pitv.LevelInfo {
		t.Fatalf("expected unknown level to default to info, got %q", alert.Level)
	}

	clock.Advance(DefaultAlertTimeout - time.Millisecond)
	if len(q.Alerts()) != 1 {
		t.Fatalf("expected alert before default timeout")
	}
	clock.Advance(time.Millisecond)
	if len(q.Alerts()) != 0 {
		t.Fatalf("expected alert removed at default timeout")
	}
}

func TestAlertTimersAreIndependent(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(nil, clock.AfterFunc)

	first := q.Show("first", pitv.LevelInfo, 300*time.Millisecond)
	second := q.Show("second", pitv.LevelWarning, 100*time.Millisecond)
	third := q.Show("third", pitv.LevelError, 200*time.Millisecond)
	if !(first.ID < second.ID && second.ID < third.ID) {
		t.Fatalf("expected strictly increasing ids: %d %d %d", first.ID, second.ID, third.ID)
	}

	clock.Advance(150 * time.Millisecond)
	got := q.Alerts()
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != third.ID {
		t.Fatalf("expected first and third to remain, got %+v", got)
	}

	clock.Advance(100 * time.Millisecond)
	got = q.Alerts()
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("expected only first to remain, got %+v", got)
	}
}

func TestAlertDismiss(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(nil, clock.AfterFunc)

	alert := q.Show("bye", pitv.LevelInfo, time.Second)
	if !q.Dismiss(alert.ID) {
		t.Fatalf("expected dismiss to remove alert")
	}
	if q.Dismiss(alert.ID) {
		t.Fatalf("expected second dismiss to be a no-op")
	}

	next := q.Show("again", pitv.LevelInfo, 2*time.Second)
	clock.Advance(time.Second)
	if got := q.Alerts(); len(got) != 1 || got[0].ID != next.ID {
		t.Fatalf("stale timer removed the wrong alert: %+v", got)
	}
	if q.Last() != next.ID {
		t.Fatalf("expected Last to report newest id")
	}
}
