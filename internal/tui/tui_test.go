package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestUpdateAppliesPollResult(t *testing.T) {
	m := newModel("http://unused")
	updated, _ := m.Update(pollResultMsg{stats: statsView{Requests: 3, WorkerCount: 2}})
	mm := updated.(model)
	if mm.stats.Requests != 3 || mm.stats.WorkerCount != 2 {
		t.Fatalf("stats not applied: %+v", mm.stats)
	}
	if mm.err != nil {
		t.Fatalf("unexpected error: %v", mm.err)
	}
}

func TestUpdatePreservesLastGoodStateOnError(t *testing.T) {
	m := newModel("http://unused")
	m.stats = statsView{Requests: 7}
	updated, _ := m.Update(pollResultMsg{err: errors.New("boom")})
	mm := updated.(model)
	if mm.err == nil {
		t.Fatal("expected error to be recorded")
	}
	if mm.stats.Requests != 7 {
		t.Fatalf("stale stats should be kept on poll error, got %+v", mm.stats)
	}
}

func TestQuitKeyRequestsQuit(t *testing.T) {
	m := newModel("http://unused")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a command (tea.Quit) on 'q'")
	}
}
