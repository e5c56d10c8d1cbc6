// Package tui provides the Bubble Tea set recorder.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/kyudo/internal/docsync"
	"github.com/verte-zerg/kyudo/internal/model"
	"github.com/verte-zerg/kyudo/internal/state"
)

// DefaultArrows is the conventional number of arrows in a set.
const DefaultArrows = 4

// Saver persists the shared state in the background.
type Saver interface {
	SaveAsync(ctx context.Context) <-chan docsync.Result
}

type saveResultMsg struct {
	result docsync.Result
}

// Model implements the Bubble Tea recorder UI.
type Model struct {
	state  *state.Container
	saver  Saver
	arrows int

	marks  []model.Shot
	cursor int

	width  int
	height int

	pending   int
	status    string
	statusErr bool

	keys keyMap
	help help.Model
}

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	hitStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	missStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	shitsuStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cursorStyle       = lipgloss.NewStyle().Underline(true).Bold(true)
	statsStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	setNumberStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	shitsuNumberStyle = setNumberStyle.Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a recorder over the shared container.
func NewModel(c *state.Container, saver Saver, arrows int) *Model {
	if arrows <= 0 {
		arrows = DefaultArrows
	}
	m := &Model{
		state:  c,
		saver:  saver,
		arrows: arrows,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
	m.resetMarks()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case saveResultMsg:
		m.handleSaveResult(msg.result)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Hit):
		m.mark(model.Hit)
	case key.Matches(msg, m.keys.Miss):
		m.mark(model.Miss)
	case key.Matches(msg, m.keys.Shitsu):
		m.mark(model.Shitsu)
	case key.Matches(msg, m.keys.Toggle):
		m.marks[m.cursor] = nextShot(m.marks[m.cursor])
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Register):
		return m, m.register()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.save()
	case key.Matches(msg, m.keys.Close):
		if !m.state.CloseSession() {
			m.setStatus("nothing to close", false)
			return m, nil
		}
		return m, m.save()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{
		titleStyle.Render("Kyudo practice"),
		m.renderSets(),
		m.renderMarks(),
		m.renderStats(),
		m.renderStatus(),
		m.help.View(m.keys),
	}
	body := strings.Join(sections, "\n\n")
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m *Model) mark(shot model.Shot) {
	m.marks[m.cursor] = shot
	m.moveCursor(1)
}

func (m *Model) moveCursor(delta int) {
	m.cursor = (m.cursor + delta + len(m.marks)) % len(m.marks)
}

// register records the marked set and saves. The save runs in the background;
// its result arrives later as a saveResultMsg.
func (m *Model) register() tea.Cmd {
	shots := make([]model.Shot, len(m.marks))
	copy(shots, m.marks)
	m.state.RecordShots(shots...)
	m.resetMarks()
	return m.save()
}

func (m *Model) save() tea.Cmd {
	m.pending++
	m.setStatus("saving…", false)
	ch := m.saver.SaveAsync(context.Background())
	return func() tea.Msg {
		return saveResultMsg{result: <-ch}
	}
}

func (m *Model) handleSaveResult(res docsync.Result) {
	if m.pending > 0 {
		m.pending--
	}
	if !res.OK() {
		m.setStatus(fmt.Sprintf("save failed: %v", res.Err), true)
		return
	}
	msg := fmt.Sprintf("saved %s (%s)", res.Rev, res.Outcome)
	if res.Outcome == docsync.Forked {
		msg = fmt.Sprintf("saved as new document %s", res.ID)
	}
	if m.pending > 0 {
		msg += fmt.Sprintf(", %d pending", m.pending)
	}
	m.setStatus(msg, false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) resetMarks() {
	m.marks = make([]model.Shot, m.arrows)
	for i := range m.marks {
		m.marks[i] = model.Miss
	}
	m.cursor = 0
}

func (m *Model) renderSets() string {
	sets := m.state.CurrentSets()
	if len(sets) == 0 {
		return footerStyle.Render("No sets recorded yet.")
	}
	start := 0
	if limit := m.visibleSets(); limit > 0 && len(sets) > limit {
		start = len(sets) - limit
	}
	lines := make([]string, 0, len(sets)-start)
	for i := start; i < len(sets); i++ {
		num := setNumberStyle
		if sets[i].HadShitsu() {
			num = shitsuNumberStyle
		}
		lines = append(lines, num.Render(fmt.Sprintf("%3d ", i+1))+renderShots(sets[i].Shots, -1))
	}
	return strings.Join(lines, "\n")
}

// visibleSets leaves room for the title, editor, stats, status and help.
func (m *Model) visibleSets() int {
	if m.height == 0 {
		return 0
	}
	return max(1, m.height-12)
}

func (m *Model) renderMarks() string {
	return "Set  " + renderShots(m.marks, m.cursor)
}

func (m *Model) renderStats() string {
	st := m.state.CurrentStatistics()
	line := fmt.Sprintf("Shots %d · Hits %d · Misses %d · Shitsu %d · Rate %s",
		st.Total, st.Hits, st.Misses, st.Shitsu, st.FormatHitRate())
	return statsStyle.Render(line)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return footerStyle.Render(m.status)
}

func renderShots(shots []model.Shot, cursor int) string {
	parts := make([]string, len(shots))
	for i, shot := range shots {
		style := shotStyle(shot)
		if i == cursor {
			style = style.Inherit(cursorStyle)
		}
		parts[i] = style.Render(shot.Glyph())
	}
	return strings.Join(parts, " ")
}

func shotStyle(shot model.Shot) lipgloss.Style {
	switch shot {
	case model.Hit:
		return hitStyle
	case model.Shitsu:
		return shitsuStyle
	default:
		return missStyle
	}
}

func nextShot(shot model.Shot) model.Shot {
	switch shot {
	case model.Miss:
		return model.Hit
	case model.Hit:
		return model.Shitsu
	default:
		return model.Miss
	}
}
