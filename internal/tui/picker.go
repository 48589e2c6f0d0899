// Package tui provides the interactive worktree picker used by
// `spork resume`.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pengelbrecht/spork/internal/worktree"
)

// worktreeItem implements list.Item for worktree display.
type worktreeItem struct {
	wt worktree.Worktree
}

func (w worktreeItem) Title() string {
	return w.wt.Branch
}

func (w worktreeItem) Description() string {
	return fmt.Sprintf("#%03d • %s", w.wt.Number, w.wt.Path)
}

func (w worktreeItem) FilterValue() string {
	return w.wt.Branch
}

// Picker is the worktree selection model.
type Picker struct {
	list     list.Model
	keys     KeyMap
	selected *worktree.Worktree
	quitting bool
}

// Picker styles
var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205")).
				MarginBottom(1)

	pickerStyle = lipgloss.NewStyle().
			Padding(1, 2)
)

// NewPicker creates a picker over worktrees, newest feature first as given.
func NewPicker(worktrees []worktree.Worktree) Picker {
	items := make([]list.Item, len(worktrees))
	for i, wt := range worktrees {
		items[i] = worktreeItem{wt: wt}
	}

	keys := DefaultKeyMap()
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 60, 20)
	l.Title = "Resume a feature worktree"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = pickerTitleStyle
	l.AdditionalShortHelpKeys = keys.ShortHelp
	// The picker owns quitting so it can tell "quit" from "selected".
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	return Picker{
		list: l,
		keys: keys,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			p.quitting = true
			return p, tea.Quit
		}
		// Keys go to the filter input while the user is typing.
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, p.keys.Quit):
			if msg.String() == "esc" && p.list.FilterState() == list.FilterApplied {
				break // esc clears an applied filter first
			}
			p.quitting = true
			return p, tea.Quit
		case key.Matches(msg, p.keys.Select):
			if item, ok := p.list.SelectedItem().(worktreeItem); ok {
				wt := item.wt
				p.selected = &wt
				return p, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		h, v := pickerStyle.GetFrameSize()
		p.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View implements tea.Model.
func (p Picker) View() string {
	if p.quitting && p.selected == nil {
		return "No worktree selected.\n"
	}
	if p.selected != nil {
		return ""
	}
	return pickerStyle.Render(p.list.View())
}

// Selected returns the selected worktree, or nil if none was selected.
func (p Picker) Selected() *worktree.Worktree {
	return p.selected
}

// IsQuitting returns true if the user quit without selecting.
func (p Picker) IsQuitting() bool {
	return p.quitting && p.selected == nil
}

// Pick runs the picker and returns the chosen worktree, or nil when the user
// quit without choosing.
func Pick(worktrees []worktree.Worktree, opts ...tea.ProgramOption) (*worktree.Worktree, error) {
	final, err := tea.NewProgram(NewPicker(worktrees), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("run picker: %w", err)
	}
	picker, ok := final.(Picker)
	if !ok {
		return nil, nil
	}
	return picker.Selected(), nil
}
