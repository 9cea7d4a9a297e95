package hmi

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/chargepoint-core/internal/charger"
)

// panelWidth is the inner width of the rendered display.
const panelWidth = 20

// Terminal renders the charger's display, status light and relay line as a
// bordered panel on a text stream. It implements dispatch.Effects and
// dispatch.Indicator, so a development machine can stand in for the real
// front panel.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	output bool
	led    LED
	lines  []string

	frame  lipgloss.Style
	title  lipgloss.Style
	dim    lipgloss.Style
	bright lipgloss.Style
	r      *lipgloss.Renderer
}

// NewTerminal creates a Terminal writing to w. Colour output follows what w
// supports: plain text for files and buffers.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:   w,
		led: LEDDark,
		r:   r,
		frame: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(panelWidth),
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("241")),
		bright: r.NewStyle().Bold(true),
	}
}

// SetOutput records the relay level. It is drawn on the next RenderText.
func (t *Terminal) SetOutput(level bool) {
	t.mu.Lock()
	t.output = level
	t.mu.Unlock()
}

// SetIndicator sets the status light for state.
func (t *Terminal) SetIndicator(state charger.State) {
	t.mu.Lock()
	t.led = LEDFor(state)
	t.mu.Unlock()
}

// RenderText replaces the display contents and redraws the panel.
func (t *Terminal) RenderText(lines []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines[:0], lines...)
	fmt.Fprintln(t.w, t.renderLocked())
}

// Snapshot returns the current display lines, light and relay level.
func (t *Terminal) Snapshot() (lines []string, led LED, output bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...), t.led, t.output
}

func (t *Terminal) renderLocked() string {
	var b strings.Builder

	for i, line := range t.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch i {
		case 0:
			b.WriteString(t.title.Render(line))
		case 1:
			b.WriteString(t.dim.Render(line))
		case 2:
			b.WriteString(t.bright.Render(line))
		default:
			b.WriteString(line)
		}
	}

	relay := "power off"
	if t.output {
		relay = "POWER ON"
	}
	light := t.r.NewStyle().Foreground(t.led.ansi()).Render("●")
	status := fmt.Sprintf("%s %-6s %s", light, t.led, t.dim.Render(relay))

	return lipgloss.JoinVertical(lipgloss.Left, t.frame.Render(b.String()), " "+status)
}
