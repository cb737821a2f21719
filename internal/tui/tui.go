// Package tui is a terminal browser for environments, entity maps and their
// field mappings, with lint findings inline.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

var (
	docStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#3B5BDB")).Padding(0, 1)
)

func Run(envs *config.Environments, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(newModel(envs), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui run failed: %w", err)
	}
	return nil
}

type level int

const (
	levelEnvironments level = iota
	levelEntities
	levelFields
)

type item struct {
	key   string
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

type model struct {
	envs   *config.Environments
	list   list.Model
	level  level
	env    *config.Environment
	entity entitymap.EntityMap
}

func newModel(envs *config.Environments) model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	m := model{envs: envs, list: l}
	m.showEnvironments()
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			m.descend()
			return m, nil
		case "esc", "backspace":
			if m.level == levelEnvironments {
				return m, tea.Quit
			}
			m.ascend()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	return docStyle.Render(m.list.View())
}

func (m *model) descend() {
	sel, ok := m.list.SelectedItem().(item)
	if !ok {
		return
	}
	switch m.level {
	case levelEnvironments:
		env, err := m.envs.Get(sel.key)
		if err != nil {
			return
		}
		m.env = env
		m.showEntities()
	case levelEntities:
		for _, em := range m.env.Entities {
			if em.SourceEntityName == sel.key {
				m.entity = em
				m.showFields()
				return
			}
		}
	}
}

func (m *model) ascend() {
	switch m.level {
	case levelFields:
		m.showEntities()
	case levelEntities:
		m.showEnvironments()
	}
}

func (m *model) setItems(title string, items []list.Item) {
	m.list.ResetFilter()
	m.list.Title = title
	m.list.SetItems(items)
	m.list.ResetSelected()
}

func (m *model) showEnvironments() {
	m.level = levelEnvironments
	var items []list.Item
	for _, name := range m.envs.Names() {
		env, err := m.envs.Get(name)
		if err != nil {
			continue
		}
		title := name
		if name == m.envs.Default {
			title += " (default)"
		}
		items = append(items, item{
			key:   name,
			title: title,
			desc:  fmt.Sprintf("%s -> %s/%s, %d entities", env.Source.BaseURL, env.Target.BaseURL, env.Target.BaseID, len(env.Entities)),
		})
	}
	m.setItems("Environments", items)
}

func (m *model) showEntities() {
	m.level = levelEntities
	opts := m.env.PayloadOptions()
	items := make([]list.Item, 0, len(m.env.Entities))
	for _, em := range m.env.Entities {
		desc := fmt.Sprintf("target %q, %d fields", em.TargetEntityName, len(em.Fields))
		if n := len(entitymap.Lint(em, opts)); n > 0 {
			desc += fmt.Sprintf(", %d lint issues", n)
		}
		items = append(items, item{key: em.SourceEntityName, title: em.SourceEntityName, desc: desc})
	}
	m.setItems("Entities in "+m.env.Name, items)
}

func (m *model) showFields() {
	m.level = levelFields
	byField := map[string][]string{}
	for _, is := range entitymap.Lint(m.entity, m.env.PayloadOptions()) {
		byField[is.Field] = append(byField[is.Field], is.Message)
	}
	items := make([]list.Item, 0, len(m.entity.Fields))
	for _, f := range m.entity.Fields {
		desc := fmt.Sprintf("source: %s  target: %s", orDash(f.SourcePath), orDash(f.TargetPath))
		if msgs := byField[f.NormName]; len(msgs) > 0 {
			desc += "  ! " + strings.Join(msgs, "; ")
		}
		items = append(items, item{key: f.NormName, title: f.NormName, desc: desc})
	}
	m.setItems(m.entity.SourceEntityName+" -> "+m.entity.TargetEntityName, items)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
