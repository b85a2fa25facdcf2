package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
	"github.com/Krimson/triage-kiosk/kiosk/internal/input"
	"github.com/Krimson/triage-kiosk/kiosk/internal/sim"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

var (
	screenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Foreground(lipgloss.Color("117")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	bandStyles = map[triage.Color]lipgloss.Style{
		triage.Green:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		triage.Yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		triage.Red:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Sink передает кадры дисплея в консоль; старый кадр вытесняется новым
type Sink struct {
	frames chan display.Frame
}

func NewSink() *Sink {
	return &Sink{frames: make(chan display.Frame, 1)}
}

func (s *Sink) SetLines(f display.Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

type frameMsg display.Frame

func waitForFrame(ch <-chan display.Frame) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-ch)
	}
}

// Model - консольный киоск: экран и кнопки на клавиатуре
type Model struct {
	latch *input.Latch
	ppg   *sim.PPG
	color *sim.ColorSensor
	sink  *Sink

	frame display.Frame
	quit  bool
}

// New создает модель консоли
func New(latch *input.Latch, ppg *sim.PPG, colorSensor *sim.ColorSensor, sink *Sink, initial display.Frame) Model {
	return Model{latch: latch, ppg: ppg, color: colorSensor, sink: sink, frame: initial}
}

func (m Model) Init() tea.Cmd {
	return waitForFrame(m.sink.frames)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = display.Frame(msg)
		return m, waitForFrame(m.sink.frames)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		m.quit = true
		return m, tea.Quit
	case key.Matches(msg, Keys.ButtonA):
		m.latch.Press(input.KeyA)
	case key.Matches(msg, Keys.ButtonB):
		m.latch.Press(input.KeyB)
	case key.Matches(msg, Keys.Left):
		m.latch.Press(input.KeyLeft)
	case key.Matches(msg, Keys.Right):
		m.latch.Press(input.KeyRight)
	case key.Matches(msg, Keys.Joy):
		m.latch.Press(input.KeyJoy)
	case key.Matches(msg, Keys.Finger):
		m.ppg.ToggleFinger()
	case key.Matches(msg, Keys.HoldGreen):
		m.color.Hold(triage.Green)
	case key.Matches(msg, Keys.HoldYellow):
		m.color.Hold(triage.Yellow)
	case key.Matches(msg, Keys.HoldRed):
		m.color.Hold(triage.Red)
	case key.Matches(msg, Keys.RemoveBand):
		m.color.Remove()
	}
	return m, nil
}

// Quitting сообщает, что пользователь вышел из консоли
func (m Model) Quitting() bool {
	return m.quit
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TheraLink - totem de triagem"))
	b.WriteString("\n")

	lines := make([]string, display.Lines)
	for i, l := range m.frame {
		lines[i] = fmt.Sprintf("%-*s", display.MaxLineLen, l)
	}
	b.WriteString(screenStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n\n")

	help := make([]string, 0, len(Keys.ShortHelp()))
	for _, k := range Keys.ShortHelp() {
		h := k.Help()
		help = append(help, keyStyle.Render(h.Key)+" "+statusStyle.Render(h.Desc))
	}
	b.WriteString(strings.Join(help, "  "))
	b.WriteString("\n")

	return b.String()
}

func (m Model) status() string {
	finger := "dedo: fora"
	if m.ppg.Finger() {
		finger = "dedo: no sensor"
	}

	band := "pulseira: nenhuma"
	if c, ok := m.color.Held(); ok {
		band = "pulseira: " + bandStyles[c].Render(c.Label())
	}
	return finger + " | " + band
}
