// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// How long a button stays lit after its press
const pressHighlight = 400 * time.Millisecond

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *bitbus.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	width         int
	height        int
	quitting      bool
	linkClosed    bool

	pad       bitbus.Snapshot
	haveFrame bool
	lastPress [bitbus.BitSquare + 1]time.Time
}

// Messages
type tickMsg time.Time
type bytesReadMsg int
type linkClosedMsg struct {
	err error
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         bitbus.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case bytesReadMsg:
		m.stats.CountBytes(int(msg))

	case linkClosedMsg:
		m.linkClosed = true
		m.addLogEntry(fmt.Sprintf("Link closed: %v", msg.err), true)

	case monitorEvent:
		m.applyEvent(msg)
	}

	return m, nil
}

func (m *model) applyEvent(ev monitorEvent) {
	if ev.err != nil {
		m.stats.Update(nil, ev.err)
		m.addLogEntry(fmt.Sprintf("PARSE ERROR: %v", ev.err), true)
		return
	}

	if ev.synced {
		m.synchronized = true
		m.invalidBytes = ev.skipped
		if ev.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", ev.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}
	}

	m.stats.Update(ev.msg, nil)

	if ev.msg.IsButton() {
		now := time.Now()
		for bit := range m.lastPress {
			if ev.snapshot.ActionButtons&(1<<uint(bit)) != 0 {
				m.lastPress[bit] = now
			}
		}
		m.addLogEntry("Pressed "+bitbus.FormatMessageKind(ev.msg.Kind), false)
		m.pad = ev.snapshot
		return
	}

	if ev.snapshot.PositionButtons != m.pad.PositionButtons || !m.haveFrame {
		dir := bitbus.FormatDirection(ev.snapshot.PositionButtons)
		if dir == "" {
			dir = "STOP"
		}
		m.addLogEntry("Direction "+dir, false)
	} else if m.showAll {
		m.addLogEntry(fmt.Sprintf("ANALOG left=%d right=%d up=%d down=%d",
			ev.msg.Left, ev.msg.Right, ev.msg.Up, ev.msg.Down), false)
	}
	m.pad = ev.snapshot
	m.haveFrame = true
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// analogBar renders v (0-255) as a bar of the given width
func analogBar(v uint8, width int) string {
	filled := int(v) * width / 255
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	buttonOff := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1)

	buttonOn := buttonOff.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("10")).
		BorderForeground(lipgloss.Color("10")).
		Bold(true)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("BITBUS - GAMEPAD MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset stats | 'q' quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Changes only"
		}())))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.linkClosed:
		s.WriteString(errorStyle.Render("✗ Link closed"))
		s.WriteString("\n\n")
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.invalidBytes)))
		}
		s.WriteString("\n\n")
	}

	// Buttons
	now := time.Now()
	buttons := []struct {
		bit   uint
		label string
	}{
		{bitbus.BitStart, "START"},
		{bitbus.BitSelect, "SELECT"},
		{bitbus.BitSquare, "A □"},
		{bitbus.BitTriangle, "B △"},
		{bitbus.BitCross, "X ✕"},
		{bitbus.BitCircle, "Y ○"},
	}
	rendered := make([]string, 0, len(buttons))
	for _, b := range buttons {
		style := buttonOff
		if now.Sub(m.lastPress[b.bit]) < pressHighlight {
			style = buttonOn
		}
		rendered = append(rendered, style.Render(b.label))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	s.WriteString("\n")

	// Stick
	padContent := strings.Builder{}
	dir := bitbus.FormatDirection(m.pad.PositionButtons)
	if dir == "" {
		dir = "STOP"
	}
	if !m.haveFrame {
		dir = "(no frame yet)"
	}
	padContent.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Direction:"), statsValueStyle.Render(dir)))
	axes := []struct {
		label string
		value uint8
	}{
		{"Left ", m.pad.Left},
		{"Right", m.pad.Right},
		{"Up   ", m.pad.Up},
		{"Down ", m.pad.Down},
	}
	for i, a := range axes {
		padContent.WriteString(fmt.Sprintf("%s %s %3d", statsLabelStyle.Render(a.label), analogBar(a.value, 24), a.value))
		if i < len(axes)-1 {
			padContent.WriteString("\n")
		}
	}
	s.WriteString(boxStyle.Render(padContent.String()))
	s.WriteString("\n")

	// Statistics
	m.stats.CalculateRates()
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Messages:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.TotalMessages, m.stats.SuccessPercent())),
		statsLabelStyle.Render("Buttons:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.ButtonEvents)),
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.AnalogFrames)),
	))

	if m.stats.TotalErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.TotalErrors)),
			headerStyle.Render("no transition"), m.stats.NoTransition,
			headerStyle.Render("invalid digit"), m.stats.InvalidDigits,
			headerStyle.Render("digit in hex"), m.stats.HexModeDigits,
			headerStyle.Render("out of range"), m.stats.OutOfRange,
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f msgs/s", m.stats.MessageRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
		statsLabelStyle.Render("Bytes:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.InputBytes)),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 22 // Reserve space for header, pad and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
