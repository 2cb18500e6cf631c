package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ownck/internal/driver"
)

func TestProgressModelAppliesEvents(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("checking", []string{"a.own", "b.own"}, events).(*progressModel)

	m.Update(eventMsg(driver.Event{File: "a.own", Stage: driver.StageParse, Status: driver.StatusWorking}))
	if got := statusLabel(m.items[0]); got != "parsing" {
		t.Fatalf("expected parsing, got %q", got)
	}
	m.Update(eventMsg(driver.Event{File: "a.own", Stage: driver.StageCheck, Status: driver.StatusDone}))
	m.Update(eventMsg(driver.Event{File: "b.own", Stage: driver.StageCheck, Status: driver.StatusError}))
	m.Update(eventMsg(driver.Event{File: "unknown.own", Status: driver.StatusDone}))

	done, failed := m.counts()
	if done != 2 || failed != 1 {
		t.Fatalf("expected 2 done and 1 failed, got %d and %d", done, failed)
	}
	view := m.View()
	if !strings.Contains(view, "(2/2, 1 with errors)") {
		t.Errorf("header missing counts:\n%s", view)
	}
	if !strings.Contains(view, "a.own") || !strings.Contains(view, "error") {
		t.Errorf("rows missing:\n%s", view)
	}
}

func TestProgressModelQuitsWhenEventsClose(t *testing.T) {
	events := make(chan driver.Event)
	close(events)
	m := NewProgressModel("checking", []string{"a.own"}, events).(*progressModel)

	msg := m.listenForEvent()()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("expected doneMsg, got %T", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !m.done {
		t.Error("model should be done")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("a/very/long/path.own", 10); got != "a/very/..." {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("日本語のパス", 7); got != "日本..." {
		t.Errorf("unexpected %q", got)
	}
}
