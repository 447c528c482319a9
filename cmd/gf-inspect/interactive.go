package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/afd/gf-layers/manifest"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7"))

	coreTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	extTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const visibleRows = 15

type inspectModel struct {
	m        *manifest.Manifest
	filter   textinput.Model
	matched  []string
	selected int
	offset   int
}

func runInteractive(m *manifest.Manifest) error {
	ti := textinput.New()
	ti.Placeholder = "filter functions"
	ti.Focus()

	model := inspectModel{m: m, filter: ti}
	model.refilter()

	_, err := tea.NewProgram(model).Run()
	return err
}

func (im inspectModel) Init() tea.Cmd {
	return textinput.Blink
}

func (im inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return im, tea.Quit
		case tea.KeyUp:
			if im.selected > 0 {
				im.selected--
			}
			im.clampScroll()
			return im, nil
		case tea.KeyDown:
			if im.selected < len(im.matched)-1 {
				im.selected++
			}
			im.clampScroll()
			return im, nil
		}
	}

	var cmd tea.Cmd
	im.filter, cmd = im.filter.Update(msg)
	im.refilter()
	return im, cmd
}

func (im *inspectModel) refilter() {
	needle := strings.ToLower(im.filter.Value())
	im.matched = im.matched[:0]
	for _, fn := range im.m.Layer.Functions {
		if needle == "" || strings.Contains(strings.ToLower(fn), needle) {
			im.matched = append(im.matched, fn)
		}
	}
	if im.selected >= len(im.matched) {
		im.selected = len(im.matched) - 1
	}
	if im.selected < 0 {
		im.selected = 0
	}
	im.clampScroll()
}

func (im *inspectModel) clampScroll() {
	if im.selected < im.offset {
		im.offset = im.selected
	}
	if im.selected >= im.offset+visibleRows {
		im.offset = im.selected - visibleRows + 1
	}
	if im.offset < 0 {
		im.offset = 0
	}
}

func (im inspectModel) View() string {
	var b strings.Builder

	l := &im.m.Layer
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  api %s  interface %d", l.Name, l.APIVersion, l.InterfaceVersion)))
	b.WriteString("\n\n")
	b.WriteString(im.filter.View())
	b.WriteString("\n\n")

	end := im.offset + visibleRows
	if end > len(im.matched) {
		end = len(im.matched)
	}
	for i := im.offset; i < end; i++ {
		fn := im.matched[i]
		tag := extTagStyle.Render("ext ")
		if isCoreName(fn) {
			tag = coreTagStyle.Render("core")
		}
		line := fmt.Sprintf("%s  %s", tag, fn)
		if i == im.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(im.matched) == 0 {
		b.WriteString(helpStyle.Render("no functions match"))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%d/%d functions · ↑/↓ select · esc quit",
		len(im.matched), len(l.Functions))))
	b.WriteString("\n")
	return b.String()
}
