// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const controlTickInterval = 50 * time.Millisecond

// Focus states
const (
	focusPad = iota
	focusRawInput
	focusPresets
)

// Keys that send a button command
var buttonKeys = map[string]bitbus.MessageKind{
	"s": bitbus.KindStart,
	"c": bitbus.KindSelect,
	"a": bitbus.KindButtonA,
	"b": bitbus.KindButtonB,
	"x": bitbus.KindButtonX,
	"y": bitbus.KindButtonY,
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// preset is a canned byte sequence for exercising a receiver
type preset struct {
	name string
	desc string
	data string
}

// Implement list.Item interface
func (p preset) Title() string       { return p.name }
func (p preset) Description() string { return p.desc }
func (p preset) FilterValue() string { return p.name }

var controlPresets = []preset{
	{"All buttons", "S C A B X Y", "SCABXY"},
	{"Hex frame", "LA1RB2FC3BD4", "LA1RB2FC3BD4"},
	{"Decimal frame", "L010R020F030B040", "L010R020F030B040"},
	{"Center", "all axes zero", "L00R00F00B00"},
	{"Bad command", "Z, then a valid frame", "ZL001R002F003B004"},
	{"Digit in hex mode", "LA1R123 (rejected)", "LA1R123"},
	{"Hex in decimal", "L01A (rejected)", "L01A"},
	{"Out of range", "L999 (rejected)", "L999"},
}

// controlModel is the Bubble Tea model for the emulator TUI
type controlModel struct {
	// Connection manager (for sending and reconnection)
	connMgr  *connectionManager
	connInfo string

	// Emulated controller
	mode      bitbus.Mode
	stick     stick
	step      int
	rate      int
	lastFrame []byte
	lastSend  time.Time

	// Inputs
	rawInput     textinput.Model
	presetList   list.Model
	focusedField int

	// Sent side
	sentMessages uint64
	sentBytes    uint64
	sendErrors   uint64

	// Received side (loopback or echo)
	stats         *bitbus.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlBatchMsg struct {
	events []monitorEvent
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connMgr *connectionManager, connInfo string, mode bitbus.Mode, rate, step int) controlModel {
	ti := textinput.New()
	ti.Placeholder = "LA1RB2FC3BD4"
	ti.CharLimit = 64
	ti.Width = 32
	ti.Prompt = "> "

	items := make([]list.Item, len(controlPresets))
	for i, p := range controlPresets {
		items[i] = p
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	presetList := list.New(items, delegate, 30, 12)
	presetList.Title = "Presets"
	presetList.SetShowStatusBar(false)
	presetList.SetShowHelp(false)
	presetList.SetFilteringEnabled(false)

	return controlModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		mode:          mode,
		step:          step,
		rate:          rate,
		rawInput:      ti,
		presetList:    presetList,
		focusedField:  focusPad,
		stats:         bitbus.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(controlTickInterval, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case controlTickMsg:
		m.stats.CalculateRates()
		// Repeat the frame while the stick is held, like the app does
		if m.rate > 0 && !m.stick.centered() && !m.connectionLost &&
			time.Since(m.lastSend) >= time.Second/time.Duration(m.rate) {
			m.sendFrame()
		}
		return m, controlTickCmd()

	case controlBatchMsg:
		for _, ev := range msg.events {
			m.processEvent(ev)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.synchronized = false
		m.addLogEntry("Reconnected", false)
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if key == "tab" {
		m.cycleFocus(1)
		return m, nil
	}
	if key == "shift+tab" {
		m.cycleFocus(-1)
		return m, nil
	}

	switch m.focusedField {
	case focusRawInput:
		switch key {
		case "esc":
			m.cycleFocus(-1)
			return m, nil
		case "enter":
			raw := m.rawInput.Value()
			if raw != "" {
				m.sendRaw([]byte(raw), "RAW "+quoteASCII([]byte(raw)))
				m.rawInput.SetValue("")
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.rawInput, cmd = m.rawInput.Update(msg)
		return m, cmd

	case focusPresets:
		switch key {
		case "esc":
			m.focusedField = focusPad
			return m, nil
		case "enter":
			if p, ok := m.presetList.SelectedItem().(preset); ok {
				m.sendRaw([]byte(p.data), "PRESET "+p.name)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.presetList, cmd = m.presetList.Update(msg)
		return m, cmd
	}

	// Pad focus
	if kind, ok := buttonKeys[key]; ok {
		m.sendButton(kind)
		return m, nil
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.moveStick(0, m.step)
	case "down", "j":
		m.moveStick(0, -m.step)
	case "left", "h":
		m.moveStick(-m.step, 0)
	case "right", "l":
		m.moveStick(m.step, 0)
	case " ":
		m.stick = stick{}
		m.sendFrame()
	case "m":
		if m.mode == bitbus.ModeHex {
			m.mode = bitbus.ModeDecimal
		} else {
			m.mode = bitbus.ModeHex
		}
		m.addLogEntry("Analog encoding: "+m.mode.String(), false)
	}

	return m, nil
}

func (m *controlModel) cycleFocus(delta int) {
	const focusCount = focusPresets + 1
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount

	if m.focusedField == focusRawInput {
		m.rawInput.Focus()
	} else {
		m.rawInput.Blur()
	}
}

//////////////////////////////////////////////////////////////
// Sending
//////////////////////////////////////////////////////////////

func (m *controlModel) moveStick(dx, dy int) {
	next := m.stick.move(dx, dy)
	if next == m.stick {
		return
	}
	m.stick = next
	m.sendFrame()
}

func (m *controlModel) sendButton(kind bitbus.MessageKind) {
	data, err := bitbus.EncodeButton(kind)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	if m.write(data) {
		m.addLogEntry("Sent "+bitbus.FormatMessageKind(kind), false)
	}
}

func (m *controlModel) sendFrame() {
	frame := m.stick.frame(m.mode)
	if m.write(frame) {
		m.lastFrame = frame
	}
}

func (m *controlModel) sendRaw(data []byte, label string) {
	if m.write(data) {
		m.addLogEntry("Sent "+label, false)
	}
}

// write sends data and updates the counters. Returns false on failure.
func (m *controlModel) write(data []byte) bool {
	// Don't send while connection is lost
	if m.connectionLost {
		m.sendErrors++
		m.addLogEntry("Cannot send: connection lost", true)
		return false
	}

	m.lastSend = time.Now()
	if err := m.connMgr.send(data); err != nil {
		m.sendErrors++
		m.addLogEntry(err.Error(), true)
		return false
	}
	m.sentMessages++
	m.sentBytes += uint64(len(data))
	return true
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *controlModel) processEvent(ev monitorEvent) {
	if ev.err != nil {
		m.stats.Update(nil, ev.err)
		m.addLogEntry(fmt.Sprintf("RX PARSE ERROR: %v", ev.err), true)
		return
	}

	if ev.synced {
		m.synchronized = true
		if ev.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("RX synchronized after skipping %d invalid bytes", ev.skipped), false)
		} else {
			m.addLogEntry("RX synchronized", false)
		}
	}

	m.stats.Update(ev.msg, nil)
	if ev.msg.IsButton() {
		m.addLogEntry("RX "+bitbus.FormatMessageKind(ev.msg.Kind), false)
	}
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("BITBUS CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s | q=quit Tab=switch", connStatus, m.mode)))
	s.WriteString("\n\n")

	// Pad panel | presets
	padStyle := boxStyle.Width(44)
	if m.focusedField == focusPad || m.focusedField == focusRawInput {
		padStyle = focusedBoxStyle.Width(44)
	}
	listStyle := boxStyle.Width(32)
	if m.focusedField == focusPresets {
		listStyle = focusedBoxStyle.Width(32)
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		padStyle.Render(m.renderPad(statsLabelStyle, statsValueStyle, headerStyle)),
		" ",
		listStyle.Render(m.presetList.View()),
	))
	s.WriteString("\n")

	// Statistics bar
	m.stats.CalculateRates()
	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d msgs / %d bytes", m.sentMessages, m.sentBytes)),
		statsLabelStyle.Render("Send errors:"), func() string {
			if m.sendErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.sendErrors))
			}
			return statsValueStyle.Render("0")
		}(),
		statsLabelStyle.Render("RX:"), statsValueStyle.Render(fmt.Sprintf("%d msgs", m.stats.TotalMessages)),
		statsLabelStyle.Render("RX errors:"), func() string {
			if m.stats.TotalErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.stats.TotalErrors))
			}
			return statsValueStyle.Render("0")
		}(),
	)
	s.WriteString(boxStyle.Width(m.width - 4).Render(content))
	s.WriteString("\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle))

	return s.String()
}

func (m controlModel) renderPad(statsLabelStyle, statsValueStyle, headerStyle lipgloss.Style) string {
	var s strings.Builder

	left, right, up, down := m.stick.axes()
	s.WriteString(fmt.Sprintf("%s x=%+4d y=%+4d\n", statsLabelStyle.Render("Stick:"), m.stick.x, m.stick.y))
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Left: "), analogBar(left, 24)))
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Right:"), analogBar(right, 24)))
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Up:   "), analogBar(up, 24)))
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Down: "), analogBar(down, 24)))

	last := "(none)"
	if m.lastFrame != nil {
		last = string(m.lastFrame)
	}
	s.WriteString(fmt.Sprintf("%s %s\n\n", statsLabelStyle.Render("Last frame:"), statsValueStyle.Render(last)))

	s.WriteString(headerStyle.Render("s c a b x y = buttons  arrows = stick"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("space = center  m = hex/decimal"))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Raw: "))
	if m.focusedField == focusRawInput {
		s.WriteString(m.rawInput.View())
	} else {
		s.WriteString(headerStyle.Render("[Tab to type raw bytes]"))
	}

	return s.String()
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := m.height - 24
	if logHeight < 4 {
		logHeight = 4
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
