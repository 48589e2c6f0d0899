package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pengelbrecht/spork/internal/worktree"
)

func testWorktrees() []worktree.Worktree {
	return []worktree.Worktree{
		{Path: "/repo/.worktrees/001-add-auth", Branch: "001-add-auth", Number: 1, Name: "add-auth"},
		{Path: "/repo/.worktrees/002-fix-login", Branch: "002-fix-login", Number: 2, Name: "fix-login"},
		{Path: "/repo/.worktrees/003-dark-mode", Branch: "003-dark-mode", Number: 3, Name: "dark-mode"},
	}
}

func update(t *testing.T, p Picker, msg tea.Msg) (Picker, tea.Cmd) {
	t.Helper()
	m, cmd := p.Update(msg)
	next, ok := m.(Picker)
	if !ok {
		t.Fatalf("Update() returned %T, want Picker", m)
	}
	return next, cmd
}

func TestNewPicker(t *testing.T) {
	p := NewPicker(testWorktrees())

	if got := len(p.list.Items()); got != 3 {
		t.Errorf("expected 3 items, got %d", got)
	}
	if p.Selected() != nil {
		t.Error("expected Selected() to be nil initially")
	}
	if p.IsQuitting() {
		t.Error("expected IsQuitting() to be false initially")
	}
}

func TestPicker_SelectFirst(t *testing.T) {
	p := NewPicker(testWorktrees())

	p, cmd := update(t, p, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd == nil {
		t.Error("expected quit command after selection")
	}
	got := p.Selected()
	if got == nil || got.Branch != "001-add-auth" {
		t.Fatalf("Selected() = %+v, want 001-add-auth", got)
	}
	if p.View() != "" {
		t.Errorf("View() after selection = %q, want empty", p.View())
	}
}

func TestPicker_Navigation(t *testing.T) {
	p := NewPicker(testWorktrees())

	// j (down) twice, then k (up) once
	p, _ = update(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	p, _ = update(t, p, tea.KeyMsg{Type: tea.KeyDown})
	p, _ = update(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	p, _ = update(t, p, tea.KeyMsg{Type: tea.KeyEnter})

	got := p.Selected()
	if got == nil || got.Branch != "002-fix-login" {
		t.Fatalf("Selected() = %+v, want 002-fix-login", got)
	}
	if got.Path != "/repo/.worktrees/002-fix-login" {
		t.Errorf("Selected().Path = %q", got.Path)
	}
}

func TestPicker_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		t.Run(msg.String(), func(t *testing.T) {
			p := NewPicker(testWorktrees())

			p, cmd := update(t, p, msg)

			if !p.IsQuitting() {
				t.Error("expected IsQuitting() after quit key")
			}
			if p.Selected() != nil {
				t.Error("expected no selection after quit")
			}
			if cmd == nil {
				t.Error("expected quit command")
			}
			if !strings.Contains(p.View(), "No worktree selected") {
				t.Errorf("View() = %q", p.View())
			}
		})
	}
}

func TestPicker_EmptyEnterDoesNothing(t *testing.T) {
	p := NewPicker(nil)

	p, _ = update(t, p, tea.KeyMsg{Type: tea.KeyEnter})

	if p.Selected() != nil || p.IsQuitting() {
		t.Error("enter on an empty list should neither select nor quit")
	}
}

func TestPicker_View(t *testing.T) {
	p := NewPicker(testWorktrees())
	p, _ = update(t, p, tea.WindowSizeMsg{Width: 100, Height: 30})

	view := p.View()
	for _, want := range []string{"Resume a feature worktree", "001-add-auth", "002-fix-login"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestWorktreeItem(t *testing.T) {
	item := worktreeItem{wt: testWorktrees()[2]}

	if item.Title() != "003-dark-mode" {
		t.Errorf("Title() = %q", item.Title())
	}
	if item.FilterValue() != "003-dark-mode" {
		t.Errorf("FilterValue() = %q", item.FilterValue())
	}
	if !strings.Contains(item.Description(), "#003") || !strings.Contains(item.Description(), "/repo/.worktrees/003-dark-mode") {
		t.Errorf("Description() = %q", item.Description())
	}
}
