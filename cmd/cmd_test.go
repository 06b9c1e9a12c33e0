// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records writes and serves reads from the same buffer
type fakeConn struct {
	bytes.Buffer
	closed bool
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

// ============================================================
// Monitor Feed Tests
// ============================================================

func TestMonitorFeed_Sync(t *testing.T) {
	f := newMonitorFeed()

	// Noise before the first message is counted, not reported
	for _, b := range []byte("ZZ") {
		_, ok := f.feed(b)
		assert.False(t, ok)
	}

	ev, ok := f.feed('S')
	require.True(t, ok)
	assert.True(t, ev.synced)
	assert.Equal(t, 2, ev.skipped)
	require.NotNil(t, ev.msg)
	assert.Equal(t, bitbus.KindStart, ev.msg.Kind)
	assert.Equal(t, uint8(1<<bitbus.BitStart), ev.snapshot.ActionButtons)

	// After sync, errors are reported
	ev, ok = f.feed('Q')
	require.True(t, ok)
	assert.ErrorIs(t, ev.err, bitbus.ErrNoTransition)
	assert.False(t, ev.synced)

	var last monitorEvent
	for _, b := range []byte("LA1RB2FC3BD4") {
		if e, ok := f.feed(b); ok {
			last = e
		}
	}
	require.NotNil(t, last.msg)
	assert.Equal(t, bitbus.NewAnalogMessage(161, 178, 195, 212), *last.msg)
	assert.Equal(t, uint8(1<<bitbus.BitDown), last.snapshot.PositionButtons)
}

// ============================================================
// Send Tests
// ============================================================

func TestBuildSendPayload(t *testing.T) {
	tests := []struct {
		name   string
		arg    string
		analog string
		raw    bool
		mode   bitbus.Mode
		want   string
	}{
		{"buttons", "SAB", "", false, bitbus.ModeHex, "SAB"},
		{"lower case buttons", "xy", "", false, bitbus.ModeHex, "XY"},
		{"analog hex", "", "161,178,195,212", false, bitbus.ModeHex, "LA1RB2FC3BD4"},
		{"analog decimal", "", "10, 20, 30, 40", false, bitbus.ModeDecimal, "L010R020F030B040"},
		{"buttons then analog", "S", "0,0,255,0", false, bitbus.ModeHex, "SL00R00FFFB00"},
		{"raw", "LA1R123", "", true, bitbus.ModeHex, "LA1R123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildSendPayload(tt.arg, tt.analog, tt.raw, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestBuildSendPayload_Errors(t *testing.T) {
	_, err := buildSendPayload("", "", false, bitbus.ModeHex)
	assert.ErrorContains(t, err, "nothing to send")

	_, err = buildSendPayload("SZ", "", false, bitbus.ModeHex)
	assert.ErrorContains(t, err, "unknown button")

	_, err = buildSendPayload("", "1,2,3", false, bitbus.ModeHex)
	assert.ErrorContains(t, err, "4 values")

	_, err = buildSendPayload("", "1,2,3,256", false, bitbus.ModeHex)
	assert.ErrorContains(t, err, "0-255")

	_, err = buildSendPayload("", "", true, bitbus.ModeHex)
	assert.Error(t, err)
}

func TestReplayDelay(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Zero(t, replayDelay(time.Time{}, base, 1))
	assert.Equal(t, 200*time.Millisecond, replayDelay(base, base.Add(200*time.Millisecond), 1))
	assert.Equal(t, 100*time.Millisecond, replayDelay(base, base.Add(200*time.Millisecond), 2))
	assert.Zero(t, replayDelay(base, base.Add(time.Second), 0))
	assert.Zero(t, replayDelay(base, base.Add(-time.Second), 1))
}

// ============================================================
// Stick Tests
// ============================================================

func TestStick(t *testing.T) {
	var s stick
	assert.True(t, s.centered())
	assert.Equal(t, "L00R00F00B00", string(s.frame(bitbus.ModeHex)))

	s = s.move(0, 100)
	left, right, up, down := s.axes()
	assert.Equal(t, [4]uint8{0, 0, 100, 0}, [4]uint8{left, right, up, down})

	s = s.move(-300, -400)
	assert.Equal(t, stick{x: -255, y: -255}, s)
	left, right, up, down = s.axes()
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, [4]uint8{left, right, up, down})
	assert.Equal(t, "L255R000F000B255", string(s.frame(bitbus.ModeDecimal)))
}

// ============================================================
// Control Model Tests
// ============================================================

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func pressKey(t *testing.T, m controlModel, msg tea.KeyMsg) controlModel {
	t.Helper()
	updated, _ := m.Update(msg)
	cm, ok := updated.(controlModel)
	require.True(t, ok)
	return cm
}

func TestControlModel_SendsKeys(t *testing.T) {
	conn := &fakeConn{}
	m := initialControlModel(&connectionManager{conn: conn}, "test", bitbus.ModeHex, 0, 32)

	m = pressKey(t, m, keyRunes("s"))
	m = pressKey(t, m, keyRunes("y"))
	assert.Equal(t, "SY", conn.String())
	conn.Reset()

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "L00R00F20B00", conn.String())
	conn.Reset()

	m = pressKey(t, m, keyRunes("m"))
	assert.Equal(t, bitbus.ModeDecimal, m.mode)
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "L032R000F032B000", conn.String())
	conn.Reset()

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, "L000R000F000B000", conn.String())
	assert.True(t, m.stick.centered())

	assert.Equal(t, uint64(5), m.sentMessages)
	assert.Zero(t, m.sendErrors)
}

func TestControlModel_RawInput(t *testing.T) {
	conn := &fakeConn{}
	m := initialControlModel(&connectionManager{conn: conn}, "test", bitbus.ModeHex, 0, 32)

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusRawInput, m.focusedField)

	// Letters go to the input line, not the link
	m = pressKey(t, m, keyRunes("S"))
	assert.Empty(t, conn.String())

	m.rawInput.SetValue("LA1R123")
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "LA1R123", conn.String())
	assert.Empty(t, m.rawInput.Value())
}

func TestControlModel_Presets(t *testing.T) {
	conn := &fakeConn{}
	m := initialControlModel(&connectionManager{conn: conn}, "test", bitbus.ModeHex, 0, 32)

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, focusPresets, m.focusedField)

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, controlPresets[0].data, conn.String())
}

func TestControlModel_ConnectionLost(t *testing.T) {
	conn := &fakeConn{}
	m := initialControlModel(&connectionManager{conn: conn}, "test", bitbus.ModeHex, 0, 32)

	updated, _ := m.Update(connectionLostMsg{})
	m = updated.(controlModel)
	m = pressKey(t, m, keyRunes("a"))
	assert.Empty(t, conn.String())
	assert.Equal(t, uint64(1), m.sendErrors)

	updated, _ = m.Update(reconnectedMsg{connInfo: "again"})
	m = updated.(controlModel)
	m = pressKey(t, m, keyRunes("a"))
	assert.Equal(t, "A", conn.String())
	assert.Equal(t, "again", m.connInfo)
}

func TestControlModel_ReceivedEvents(t *testing.T) {
	m := initialControlModel(&connectionManager{conn: &fakeConn{}}, "test", bitbus.ModeHex, 0, 32)

	f := newMonitorFeed()
	var batch controlBatchMsg
	for _, b := range []byte("XQ") {
		if ev, ok := f.feed(b); ok {
			batch.events = append(batch.events, ev)
		}
	}
	updated, _ := m.Update(batch)
	m = updated.(controlModel)

	assert.True(t, m.synchronized)
	assert.Equal(t, uint64(1), m.stats.TotalMessages)
	assert.Equal(t, uint64(1), m.stats.NoTransition)
}

// ============================================================
// WebSocket Connection Tests
// ============================================================

func TestWebSocketConnection(t *testing.T) {
	auth := make(chan [2]string, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		auth <- [2]string{user, pass}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		// The bridge may use either frame type
		c.WriteMessage(websocket.TextMessage, []byte("LA1RB2"))
		c.WriteMessage(websocket.BinaryMessage, []byte("FC3BD4"))

		// Echo one message back
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		c.WriteMessage(websocket.TextMessage, data)

		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := OpenWebSocketConnection(url, "pilot", "secret", false)
	require.NoError(t, err)
	defer conn.Close()

	d := bitbus.NewDecoder()
	buf := make([]byte, 4) // smaller than a frame, exercises buffering
	var msg *bitbus.Message
	for msg == nil {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			m, err := d.DecodeByte(buf[i])
			require.NoError(t, err)
			if m != nil {
				msg = m
			}
		}
	}
	assert.Equal(t, bitbus.NewAnalogMessage(161, 178, 195, 212), *msg)
	assert.Equal(t, [2]string{"pilot", "secret"}, <-auth)

	_, err = conn.Write([]byte("S"))
	require.NoError(t, err)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "S", string(buf[:n]))

	_, err = conn.Read(buf)
	assert.True(t, errors.Is(err, ErrConnectionClosed))
	_, err = conn.Read(buf)
	assert.Equal(t, ErrConnectionClosed, err)
}

func TestOpenWebSocketConnection_BadScheme(t *testing.T) {
	_, err := OpenWebSocketConnection("http://localhost/", "", "", false)
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestReadChunks(t *testing.T) {
	conn := &fakeConn{}
	conn.WriteString("L010R020")

	readChan, errChan := readChunks(conn, 4)
	var got []byte
	for len(got) < 8 {
		select {
		case data := <-readChan:
			got = append(got, data...)
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
	assert.Equal(t, "L010R020", string(got))

	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("no EOF")
	}
}

// ============================================================
// Root Command Tests
// ============================================================

func TestSetup_ConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitbus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baud: 57600\nmode: decimal\n"), 0o644))

	rootCmd.SetArgs([]string{"--config", path, "table"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 57600, cfg.Baud)
	assert.Equal(t, bitbus.ModeDecimal, sendMode())

	rootCmd.SetArgs([]string{"--config", path, "--baud", "19200", "table"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 19200, cfg.Baud, "explicit flag overrides the file")
	assert.Equal(t, "decimal", cfg.Mode)
}
